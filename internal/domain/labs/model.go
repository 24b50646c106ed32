package labs

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for recorded_on. Lab draws carry a calendar
// date only; time-of-day is not meaningful for trend analysis.
const DateLayout = "2006-01-02"

// Record is a single thyroid panel draw for a patient. Records are immutable:
// once created they are never updated or deleted, so a patient's series is
// append-only.
type Record struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	RecordedOn time.Time `json:"recorded_on"`
	TSH        float64   `json:"tsh"` // µIU/mL
	T3         float64   `json:"t3"`  // ng/dL
	T4         float64   `json:"t4"`  // µg/dL
	CreatedAt  time.Time `json:"created_at"`
}

// ImportRowError reports a single rejected row from a CSV bulk import.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarizes a CSV bulk import. Rows fail independently: a bad
// row is reported and skipped, the rest still import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
