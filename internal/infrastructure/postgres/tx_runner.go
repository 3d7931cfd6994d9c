package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL. Lo usan los
// handlers que crean documentos tributarios: cabecera, líneas y pagos se
// persisten completos o no se persisten.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInvoice ejecuta fn con un InvoiceRepository atado a la transacción.
func (r *TxRunner) RunInvoice(ctx context.Context, fn func(repo repository.InvoiceRepository) error) error {
	return r.run(ctx, func(tx Querier) error {
		return fn(NewInvoiceRepository(tx))
	})
}

// RunCreditNote ejecuta fn con repos de nota de crédito y factura atados a la
// transacción: la validación contra la factura original lee dentro de la tx.
func (r *TxRunner) RunCreditNote(ctx context.Context, fn func(
	ncRepo repository.CreditNoteRepository,
	invRepo repository.InvoiceRepository,
) error) error {
	return r.run(ctx, func(tx Querier) error {
		return fn(NewCreditNoteRepository(tx), NewInvoiceRepository(tx))
	})
}

func (r *TxRunner) run(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
