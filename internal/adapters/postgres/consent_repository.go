package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
)

type ConsentRepository struct {
	db *pgxpool.Pool
}

func NewConsentRepository(db *pgxpool.Pool) *ConsentRepository {
	return &ConsentRepository{db: db}
}

func (r *ConsentRepository) CreateConsent(ctx context.Context, consent *domain.Consent) error {
	query := `
		INSERT INTO consents (
			id, external_id, consent_type, access, valid_until, recurring,
			frequency_per_day, status, multilevel_sca, psus, tpp,
			decision_notified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	m, err := toConsentModel(consent)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		m.ID, m.ExternalID, m.Type, m.Access, m.ValidUntil, m.Recurring,
		m.FrequencyPerDay, m.Status, m.MultilevelSca, m.Psus, m.Tpp,
		m.DecisionNotified, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrResourceExists
		}
		return fmt.Errorf("failed to create consent: %w", err)
	}
	return nil
}

func (r *ConsentRepository) GetConsent(ctx context.Context, id uuid.UUID) (*domain.Consent, error) {
	query := `
		SELECT id, external_id, consent_type, access, valid_until, recurring,
		       frequency_per_day, status, multilevel_sca, psus, tpp,
		       decision_notified, created_at, updated_at
		FROM consents WHERE id = $1
	`

	var m consentModel
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.ExternalID, &m.Type, &m.Access, &m.ValidUntil, &m.Recurring,
		&m.FrequencyPerDay, &m.Status, &m.MultilevelSca, &m.Psus, &m.Tpp,
		&m.DecisionNotified, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConsentNotFound
		}
		return nil, fmt.Errorf("failed to scan consent: %w", err)
	}
	return toConsent(&m)
}

func (r *ConsentRepository) UpdateConsent(ctx context.Context, consent *domain.Consent) error {
	query := `
		UPDATE consents
		SET access = $1, valid_until = $2, status = $3, multilevel_sca = $4,
		    psus = $5, decision_notified = $6, updated_at = $7
		WHERE id = $8
	`

	consent.UpdatedAt = time.Now().UTC()
	m, err := toConsentModel(consent)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query,
		m.Access, m.ValidUntil, m.Status, m.MultilevelSca,
		m.Psus, m.DecisionNotified, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConsentNotFound
	}
	return nil
}

func (r *ConsentRepository) UpdateConsentStatus(ctx context.Context, id uuid.UUID, status domain.ConsentStatus) error {
	query := `UPDATE consents SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.db.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update consent status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConsentNotFound
	}
	return nil
}
