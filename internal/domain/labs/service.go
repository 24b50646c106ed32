package labs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	records RecordRepository
}

func NewService(records RecordRepository) *Service {
	return &Service{records: records}
}

// CreateRecord validates and stores one lab draw. The recorded_on timestamp
// is truncated to its calendar date.
func (s *Service) CreateRecord(ctx context.Context, rec *Record) error {
	if rec.PatientID == uuid.Nil {
		return errors.New("patient_id is required")
	}
	if rec.DoctorID == uuid.Nil {
		return errors.New("doctor_id is required")
	}
	if rec.RecordedOn.IsZero() {
		return errors.New("recorded_on is required")
	}
	if err := validateHormone("tsh", rec.TSH); err != nil {
		return err
	}
	if err := validateHormone("t3", rec.T3); err != nil {
		return err
	}
	if err := validateHormone("t4", rec.T4); err != nil {
		return err
	}
	y, m, d := rec.RecordedOn.Date()
	rec.RecordedOn = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.records.Create(ctx, rec)
}

func validateHormone(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if v < 0 {
		return fmt.Errorf("%s must not be negative", name)
	}
	return nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

// Series returns the patient's full chronological series for the analyzer.
func (s *Service) Series(ctx context.Context, patientID uuid.UUID) ([]*Record, error) {
	return s.records.SeriesByPatient(ctx, patientID)
}

var importHeader = []string{"patient_id", "recorded_on", "tsh", "t3", "t4"}

// ImportCSV ingests records in bulk from a CSV stream with the header
// patient_id,recorded_on,tsh,t3,t4. Rows fail independently; the result
// reports each rejected row with its line number.
func (s *Service) ImportCSV(ctx context.Context, doctorID uuid.UUID, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkImportHeader(header); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	line := 1
	for {
		line++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		rec, err := parseImportRow(row, doctorID)
		if err == nil {
			err = s.CreateRecord(ctx, rec)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{Line: line, Message: err.Error()})
			continue
		}
		result.Imported++
	}
	return result, nil
}

func checkImportHeader(header []string) error {
	if len(header) != len(importHeader) {
		return fmt.Errorf("expected header %s", strings.Join(importHeader, ","))
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), importHeader[i]) {
			return fmt.Errorf("expected header %s", strings.Join(importHeader, ","))
		}
	}
	return nil
}

func parseImportRow(row []string, doctorID uuid.UUID) (*Record, error) {
	if len(row) != len(importHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(importHeader), len(row))
	}
	patientID, err := uuid.Parse(strings.TrimSpace(row[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid patient_id: %w", err)
	}
	recordedOn, err := time.Parse(DateLayout, strings.TrimSpace(row[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid recorded_on: %w", err)
	}
	values := make([]float64, 3)
	for i, name := range []string{"tsh", "t3", "t4"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[2+i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		values[i] = v
	}
	return &Record{
		PatientID:  patientID,
		DoctorID:   doctorID,
		RecordedOn: recordedOn,
		TSH:        values[0],
		T3:         values[1],
		T4:         values[2],
	}, nil
}
