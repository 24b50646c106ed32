package labs

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByPatient returns a page of the patient's series in chronological
	// order (ascending recorded_on, created_at then id as tiebreak).
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	// SeriesByPatient returns the patient's full series in the same order,
	// unpaginated, for the trend analyzer.
	SeriesByPatient(ctx context.Context, patientID uuid.UUID) ([]*Record, error)
}
