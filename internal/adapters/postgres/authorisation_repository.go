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

type AuthorisationRepository struct {
	db *pgxpool.Pool
}

func NewAuthorisationRepository(db *pgxpool.Pool) *AuthorisationRepository {
	return &AuthorisationRepository{db: db}
}

func (r *AuthorisationRepository) CreateAuthorisation(ctx context.Context, auth *domain.Authorisation) error {
	query := `
		INSERT INTO authorisations (
			id, parent_id, parent_kind, psu, approach, status,
			available_methods, chosen_method_id, confirmation_code,
			redirect_uri, internal_request_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	m, err := toAuthorisationModel(auth)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		m.ID, m.ParentID, m.ParentKind, m.Psu, m.Approach, m.Status,
		m.AvailableMethods, m.ChosenMethodID, m.ConfirmationCode,
		m.RedirectURI, m.InternalRequestID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrResourceExists
		}
		return fmt.Errorf("failed to create authorisation: %w", err)
	}
	return nil
}

func (r *AuthorisationRepository) GetAuthorisation(ctx context.Context, id uuid.UUID) (*domain.Authorisation, error) {
	query := `
		SELECT id, parent_id, parent_kind, psu, approach, status,
		       available_methods, chosen_method_id, confirmation_code,
		       redirect_uri, internal_request_id, created_at, updated_at
		FROM authorisations WHERE id = $1
	`

	row := r.db.QueryRow(ctx, query, id)
	return scanAuthorisation(row)
}

func (r *AuthorisationRepository) GetAuthorisationsByParent(ctx context.Context, parentID uuid.UUID, kind domain.AuthorisationParent) ([]*domain.Authorisation, error) {
	query := `
		SELECT id, parent_id, parent_kind, psu, approach, status,
		       available_methods, chosen_method_id, confirmation_code,
		       redirect_uri, internal_request_id, created_at, updated_at
		FROM authorisations
		WHERE parent_id = $1 AND parent_kind = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, parentID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query authorisations by parent: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Authorisation, error) {
		return scanAuthorisation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan authorisations: %w", err)
	}
	return results, nil
}

func (r *AuthorisationRepository) UpdateAuthorisation(ctx context.Context, auth *domain.Authorisation) error {
	query := `
		UPDATE authorisations
		SET psu = $1, status = $2, available_methods = $3, chosen_method_id = $4,
		    confirmation_code = $5, redirect_uri = $6, updated_at = $7
		WHERE id = $8
	`

	auth.UpdatedAt = time.Now().UTC()
	m, err := toAuthorisationModel(auth)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query,
		m.Psu, m.Status, m.AvailableMethods, m.ChosenMethodID,
		m.ConfirmationCode, m.RedirectURI, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update authorisation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuthorisationNotFound
	}
	return nil
}

func scanAuthorisation(row pgx.Row) (*domain.Authorisation, error) {
	var m authorisationModel
	err := row.Scan(
		&m.ID, &m.ParentID, &m.ParentKind, &m.Psu, &m.Approach, &m.Status,
		&m.AvailableMethods, &m.ChosenMethodID, &m.ConfirmationCode,
		&m.RedirectURI, &m.InternalRequestID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuthorisationNotFound
		}
		return nil, fmt.Errorf("failed to scan authorisation: %w", err)
	}
	return toAuthorisation(&m)
}
