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

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, external_id, product, payment_type,
			debtor_account, creditor_account, creditor_name, amount,
			requested_execution_date, raw_data, status, psu, tpp,
			multilevel_sca, cancellation_initiated, cancelled_finalised,
			cancellation_redirect_uri, cancellation_internal_request_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	m, err := toPaymentModel(payment)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		m.ID, m.ExternalID, m.Product, m.Type,
		m.DebtorAccount, m.CreditorAccount, m.CreditorName, m.Amount,
		m.RequestedExecutionDate, m.RawData, m.Status, m.Psu, m.Tpp,
		m.MultilevelSca, m.CancellationInitiated, m.CancelledFinalised,
		m.CancellationRedirectURI, m.CancellationInternalRequestID,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrResourceExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, external_id, product, payment_type,
		       debtor_account, creditor_account, creditor_name, amount,
		       requested_execution_date, raw_data, status, psu, tpp,
		       multilevel_sca, cancellation_initiated, cancelled_finalised,
		       cancellation_redirect_uri, cancellation_internal_request_id,
		       created_at, updated_at
		FROM payments WHERE id = $1
	`

	row := r.db.QueryRow(ctx, query, id)
	return scanPayment(row)
}

func (r *PaymentRepository) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, psu = $2,
		    multilevel_sca = $3, cancellation_initiated = $4, cancelled_finalised = $5,
		    cancellation_redirect_uri = $6, cancellation_internal_request_id = $7,
		    updated_at = $8
		WHERE id = $9
	`

	payment.UpdatedAt = time.Now().UTC()
	m, err := toPaymentModel(payment)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query,
		m.Status, m.Psu,
		m.MultilevelSca, m.CancellationInitiated, m.CancelledFinalised,
		m.CancellationRedirectURI, m.CancellationInternalRequestID,
		m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	query := `UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.db.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var m paymentModel
	err := row.Scan(
		&m.ID, &m.ExternalID, &m.Product, &m.Type,
		&m.DebtorAccount, &m.CreditorAccount, &m.CreditorName, &m.Amount,
		&m.RequestedExecutionDate, &m.RawData, &m.Status, &m.Psu, &m.Tpp,
		&m.MultilevelSca, &m.CancellationInitiated, &m.CancelledFinalised,
		&m.CancellationRedirectURI, &m.CancellationInternalRequestID,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toPayment(&m)
}
