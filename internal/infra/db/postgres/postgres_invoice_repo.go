package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, external_invoice_id, user_id, subscription_id, invoice_number, amount, currency, status, tax_amount, issue_date, due_date, paid_at, hosted_invoice_url, invoice_pdf`

// Upsert keys on external_invoice_id so redelivered invoice events update the
// existing row instead of duplicating it.
func (r *invoiceRepo) Upsert(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, external_invoice_id, user_id, subscription_id, invoice_number, amount, currency, status, tax_amount, issue_date, due_date, paid_at, hosted_invoice_url, invoice_pdf
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (external_invoice_id) DO UPDATE SET
  invoice_number=$5, amount=$6, currency=$7, status=$8, tax_amount=$9, issue_date=$10, due_date=$11, paid_at=$12, hosted_invoice_url=$13, invoice_pdf=$14;`

	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.ExternalInvoiceID, inv.UserID, inv.SubscriptionID, inv.InvoiceNumber,
		inv.Amount, inv.Currency, inv.Status, inv.TaxAmount, inv.IssueDate, inv.DueDate,
		inv.PaidAt, inv.HostedInvoiceURL, inv.InvoicePDF)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE external_invoice_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}

	inv := &model.Invoice{}
	err = row.Scan(&inv.ID, &inv.ExternalInvoiceID, &inv.UserID, &inv.SubscriptionID, &inv.InvoiceNumber,
		&inv.Amount, &inv.Currency, &inv.Status, &inv.TaxAmount, &inv.IssueDate, &inv.DueDate,
		&inv.PaidAt, &inv.HostedInvoiceURL, &inv.InvoicePDF)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return inv, nil
}
