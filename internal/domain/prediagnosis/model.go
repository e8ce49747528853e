package prediagnosis

import (
	"time"

	"github.com/google/uuid"
)

// SymptomReport is the free-text description a caregiver submits for a
// patient.
type SymptomReport struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patientId"`
	Symptoms   string    `json:"symptoms"`
	ReportedAt time.Time `json:"reportedAt"`
}

// PreDiagnosis is the classifier's answer for one SymptomReport. Probability
// is normalized to [0, 1].
type PreDiagnosis struct {
	ID              uuid.UUID `json:"id"`
	SymptomReportID uuid.UUID `json:"symptomReportId"`
	PatientID       uuid.UUID `json:"patientId"`
	Symptoms        string    `json:"symptoms"`
	Diagnosis       string    `json:"diagnosis"`
	Probability     float64   `json:"probability"`
	Recommendation  *string   `json:"recommendation,omitempty"`
	ModelVersion    *string   `json:"modelVersion,omitempty"`
	PredictedAt     time.Time `json:"predictedAt"`
}

// Prediction is what the classification service returned.
type Prediction struct {
	Label          string
	Confidence     float64
	Recommendation *string
	ModelVersion   *string
}
