package identity

import (
	"context"

	"github.com/google/uuid"
)

// Directory answers read-only questions about users and patients.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	IsDoctor(ctx context.Context, id uuid.UUID) (bool, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}
