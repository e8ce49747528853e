package prediagnosis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *repoPG) CreateReport(ctx context.Context, rep *SymptomReport) error {
	rep.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO symptom_reports (id, patient_id, symptoms)
		VALUES ($1, $2, $3)
		RETURNING reported_at`,
		rep.ID, rep.PatientID, rep.Symptoms).Scan(&rep.ReportedAt)
	if db.IsConstraintViolation(err, db.CodeForeignKeyViolation, "") {
		return apperr.NotFound("patient %s not found", rep.PatientID)
	}
	if err != nil {
		return fmt.Errorf("insert symptom report: %w", err)
	}
	return nil
}

func (r *repoPG) CreatePreDiagnosis(ctx context.Context, p *PreDiagnosis) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prediagnoses (id, symptom_report_id, patient_id, diagnosis, probability, recommendation, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING predicted_at`,
		p.ID, p.SymptomReportID, p.PatientID, p.Diagnosis, p.Probability, p.Recommendation, p.ModelVersion,
	).Scan(&p.PredictedAt)
	if err != nil {
		return fmt.Errorf("insert prediagnosis: %w", err)
	}
	return nil
}

const selectPreDiagnosis = `
	SELECT p.id, p.symptom_report_id, p.patient_id, s.symptoms, p.diagnosis,
	       p.probability, p.recommendation, p.model_version, p.predicted_at
	FROM prediagnoses p
	JOIN symptom_reports s ON s.id = p.symptom_report_id`

func scanPreDiagnosis(row pgx.Row) (*PreDiagnosis, error) {
	var p PreDiagnosis
	err := row.Scan(&p.ID, &p.SymptomReportID, &p.PatientID, &p.Symptoms, &p.Diagnosis,
		&p.Probability, &p.Recommendation, &p.ModelVersion, &p.PredictedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PreDiagnosis, error) {
	p, err := scanPreDiagnosis(r.conn(ctx).QueryRow(ctx, selectPreDiagnosis+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prediagnosis %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get prediagnosis: %w", err)
	}
	return p, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, pg pagination.Params) ([]*PreDiagnosis, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prediagnoses WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prediagnoses: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, selectPreDiagnosis+`
		WHERE p.patient_id = $1
		ORDER BY p.predicted_at DESC, p.id `+pg.SQL(), patientID)
	if err != nil {
		return nil, 0, fmt.Errorf("list prediagnoses: %w", err)
	}
	defer rows.Close()

	var out []*PreDiagnosis
	for rows.Next() {
		p, err := scanPreDiagnosis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan prediagnosis: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
