package prediagnosis

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/pagination"
)

type Repository interface {
	CreateReport(ctx context.Context, r *SymptomReport) error
	CreatePreDiagnosis(ctx context.Context, p *PreDiagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*PreDiagnosis, error)
	// ListByPatient returns the newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*PreDiagnosis, int, error)
}
