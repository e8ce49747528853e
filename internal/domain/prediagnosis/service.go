package prediagnosis

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

// MaxSymptomsLength bounds the free-text description, in characters.
const MaxSymptomsLength = 4000

type Service struct {
	repo      Repository
	directory identity.Directory
	ai        Predictor
	tx        db.Transactor
	logger    zerolog.Logger
}

func NewService(repo Repository, dir identity.Directory, ai Predictor, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, directory: dir, ai: ai, tx: tx, logger: logger}
}

type CreateInput struct {
	PatientID uuid.UUID
	Symptoms  string
}

// Create classifies the symptoms and stores the report and its prediagnosis
// together. The classifier is called before the transaction opens so no
// connection is held while waiting on it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PreDiagnosis, error) {
	symptoms := strings.TrimSpace(in.Symptoms)
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patientId is required")
	}
	if symptoms == "" {
		return nil, apperr.Validation("symptoms must not be empty")
	}
	if utf8.RuneCountInString(symptoms) > MaxSymptomsLength {
		return nil, apperr.Validation("symptoms must be at most %d characters", MaxSymptomsLength)
	}
	if err := s.authorizePatient(ctx, in.PatientID); err != nil {
		return nil, err
	}

	pred, err := s.ai.Predict(ctx, symptoms)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", in.PatientID.String()).
		Str("diagnosis", pred.Label).
		Float64("probability", pred.Confidence).
		Msg("prediagnosis computed")

	report := &SymptomReport{PatientID: in.PatientID, Symptoms: symptoms}
	out := &PreDiagnosis{
		PatientID:      in.PatientID,
		Symptoms:       symptoms,
		Diagnosis:      pred.Label,
		Probability:    pred.Confidence,
		Recommendation: pred.Recommendation,
		ModelVersion:   pred.ModelVersion,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateReport(ctx, report); err != nil {
			return err
		}
		out.SymptomReportID = report.ID
		return s.repo.CreatePreDiagnosis(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PreDiagnosis, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePatient(ctx, p.PatientID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*PreDiagnosis, int, error) {
	if err := s.authorizePatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, p)
}

// authorizePatient checks the patient exists and that a parent caller
// registered it. Doctors and admins see every patient.
func (s *Service) authorizePatient(ctx context.Context, patientID uuid.UUID) error {
	p, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if auth.HasRole(ctx, auth.RoleDoctor) {
		return nil
	}
	caller, _ := uuid.Parse(auth.UserIDFromContext(ctx))
	if p.ParentID == nil || caller == uuid.Nil || *p.ParentID != caller {
		return apperr.New(apperr.KindForbidden, "not allowed to act for patient %s", patientID)
	}
	return nil
}
