package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "sante/pkg/domain-errors"
)

// EntryKind names a clinical entry type. It is also the kind column of the
// clinical_entries table.
type EntryKind string

const (
	KindConsultation  EntryKind = "consultation"
	KindPrescription  EntryKind = "prescription"
	KindLabResult     EntryKind = "lab_result"
	KindImagingResult EntryKind = "imaging_result"
	KindVaccination   EntryKind = "vaccination"
	KindHistoryItem   EntryKind = "history_item"
)

// EntryMeta is shared by every clinical entry.
type EntryMeta struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (m EntryMeta) Meta() EntryMeta {
	return m
}

// Entry is implemented by every clinical entry value type.
type Entry interface {
	Meta() EntryMeta
	Kind() EntryKind
	// OccurredAt is the clinical date lists are sorted by.
	OccurredAt() time.Time
	Validate() error
}

type Consultation struct {
	EntryMeta
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

func (Consultation) Kind() EntryKind         { return KindConsultation }
func (c Consultation) OccurredAt() time.Time { return c.Date }

func (c Consultation) Validate() error {
	return firstMissing(c.EntryMeta, c.Date, field{"reason", c.Reason})
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

type Prescription struct {
	EntryMeta
	IssuedAt     time.Time    `json:"issued_at"`
	Medications  []Medication `json:"medications"`
	Instructions string       `json:"instructions,omitempty"`
}

func (Prescription) Kind() EntryKind         { return KindPrescription }
func (p Prescription) OccurredAt() time.Time { return p.IssuedAt }

func (p Prescription) Validate() error {
	if err := firstMissing(p.EntryMeta, p.IssuedAt); err != nil {
		return err
	}
	if len(p.Medications) == 0 {
		return dErrors.New(dErrors.CodeValidation, "medications is required")
	}
	for _, m := range p.Medications {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return dErrors.New(dErrors.CodeValidation, "each medication needs a name and a dosage")
		}
	}
	return nil
}

type LabResult struct {
	EntryMeta
	CollectedAt    time.Time `json:"collected_at"`
	TestName       string    `json:"test_name"`
	Value          string    `json:"value"`
	Unit           string    `json:"unit,omitempty"`
	ReferenceRange string    `json:"reference_range,omitempty"`
	Abnormal       bool      `json:"abnormal"`
}

func (LabResult) Kind() EntryKind         { return KindLabResult }
func (l LabResult) OccurredAt() time.Time { return l.CollectedAt }

func (l LabResult) Validate() error {
	return firstMissing(l.EntryMeta, l.CollectedAt, field{"test_name", l.TestName}, field{"value", l.Value})
}

type ImagingResult struct {
	EntryMeta
	PerformedAt time.Time `json:"performed_at"`
	Modality    string    `json:"modality"`
	BodyPart    string    `json:"body_part"`
	Findings    string    `json:"findings"`
	Conclusion  string    `json:"conclusion,omitempty"`
}

func (ImagingResult) Kind() EntryKind         { return KindImagingResult }
func (i ImagingResult) OccurredAt() time.Time { return i.PerformedAt }

func (i ImagingResult) Validate() error {
	return firstMissing(i.EntryMeta, i.PerformedAt,
		field{"modality", i.Modality}, field{"body_part", i.BodyPart}, field{"findings", i.Findings})
}

type Vaccination struct {
	EntryMeta
	AdministeredAt time.Time `json:"administered_at"`
	Vaccine        string    `json:"vaccine"`
	Dose           int       `json:"dose"`
	LotNumber      string    `json:"lot_number,omitempty"`
}

func (Vaccination) Kind() EntryKind         { return KindVaccination }
func (v Vaccination) OccurredAt() time.Time { return v.AdministeredAt }

func (v Vaccination) Validate() error {
	if err := firstMissing(v.EntryMeta, v.AdministeredAt, field{"vaccine", v.Vaccine}); err != nil {
		return err
	}
	if v.Dose < 1 {
		return dErrors.New(dErrors.CodeValidation, "dose must be at least 1")
	}
	return nil
}

// HistoryCategory classifies a medical history item.
type HistoryCategory string

const (
	HistoryAllergy   HistoryCategory = "allergy"
	HistoryChronic   HistoryCategory = "chronic_condition"
	HistorySurgery   HistoryCategory = "surgery"
	HistoryFamily    HistoryCategory = "family"
	HistoryLifestyle HistoryCategory = "lifestyle"
)

type HistoryItem struct {
	EntryMeta
	RecordedAt  time.Time       `json:"recorded_at"`
	Category    HistoryCategory `json:"category"`
	Description string          `json:"description"`
}

func (HistoryItem) Kind() EntryKind         { return KindHistoryItem }
func (h HistoryItem) OccurredAt() time.Time { return h.RecordedAt }

func (h HistoryItem) Validate() error {
	if err := firstMissing(h.EntryMeta, h.RecordedAt, field{"description", h.Description}); err != nil {
		return err
	}
	switch h.Category {
	case HistoryAllergy, HistoryChronic, HistorySurgery, HistoryFamily, HistoryLifestyle:
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown history category: "+string(h.Category))
	}
}

// DMP is a patient's aggregated record. Every list is sorted by its clinical
// date, newest first.
type DMP struct {
	PatientID      string          `json:"patient_id"`
	Consultations  []Consultation  `json:"consultations"`
	Prescriptions  []Prescription  `json:"prescriptions"`
	LabResults     []LabResult     `json:"lab_results"`
	ImagingResults []ImagingResult `json:"imaging_results"`
	Vaccinations   []Vaccination   `json:"vaccinations"`
	History        []HistoryItem   `json:"history"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type field struct {
	name  string
	value string
}

func firstMissing(meta EntryMeta, date time.Time, fields ...field) error {
	if strings.TrimSpace(meta.PatientID) == "" {
		return dErrors.New(dErrors.CodeValidation, "patient_id is required")
	}
	if strings.TrimSpace(meta.AuthorID) == "" {
		return dErrors.New(dErrors.CodeValidation, "author_id is required")
	}
	if date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return dErrors.New(dErrors.CodeValidation, f.name+" is required")
		}
	}
	return nil
}
