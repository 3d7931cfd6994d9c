package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

// CreditNoteRepo implementación del puerto CreditNoteRepository sobre PostgreSQL.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

const creditNoteColumns = `
	id, company_id, customer_id, location_id, date,
	estab, pto_emi, secuencial, clave_acceso,
	invoice_id, invoice_numero, invoice_date,
	motivo, subtotal, tax_total, grand_total,
	created_at, updated_at`

// Create persiste la cabecera de la nota de crédito.
func (r *CreditNoteRepo) Create(nc *entity.CreditNote) error {
	query := `
		INSERT INTO credit_notes (` + creditNoteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(context.Background(), query,
		nc.ID, nc.CompanyID, nc.CustomerID, nc.LocationID, nc.Date,
		nc.Estab, nc.PtoEmi, nc.Secuencial, nc.ClaveAcceso,
		nc.InvoiceID, nc.InvoiceNumero, nc.InvoiceDate,
		nc.Motivo, nc.Subtotal, nc.TaxTotal, nc.GrandTotal,
		nc.CreatedAt, nc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit note: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de la nota de crédito.
func (r *CreditNoteRepo) CreateLine(line *entity.CreditNoteLine) error {
	query := `
		INSERT INTO credit_note_lines (
			id, credit_note_id, item_code, description, quantity, unit_price,
			subtotal, iva_rate, iva_clase, ice_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.CreditNoteID, line.ItemCode, line.Description,
		line.Quantity, line.UnitPrice, line.Subtotal,
		line.IVARate, line.IVAClase, line.ICERate,
	)
	if err != nil {
		return fmt.Errorf("insert credit note line: %w", err)
	}
	return nil
}

// Update actualiza la numeración y la clave de acceso asignadas al submit.
func (r *CreditNoteRepo) Update(nc *entity.CreditNote) error {
	query := `
		UPDATE credit_notes
		SET estab = $2, pto_emi = $3, secuencial = $4, clave_acceso = $5,
		    motivo = $6, subtotal = $7, tax_total = $8, grand_total = $9,
		    updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		nc.ID, nc.Estab, nc.PtoEmi, nc.Secuencial, nc.ClaveAcceso,
		nc.Motivo, nc.Subtotal, nc.TaxTotal, nc.GrandTotal,
	)
	if err != nil {
		return fmt.Errorf("update credit note: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera de la nota de crédito.
func (r *CreditNoteRepo) GetByID(id string) (*entity.CreditNote, error) {
	query := `SELECT` + creditNoteColumns + ` FROM credit_notes WHERE id = $1`
	var nc entity.CreditNote
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&nc.ID, &nc.CompanyID, &nc.CustomerID, &nc.LocationID, &nc.Date,
		&nc.Estab, &nc.PtoEmi, &nc.Secuencial, &nc.ClaveAcceso,
		&nc.InvoiceID, &nc.InvoiceNumero, &nc.InvoiceDate,
		&nc.Motivo, &nc.Subtotal, &nc.TaxTotal, &nc.GrandTotal,
		&nc.CreatedAt, &nc.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get credit note: %w", err)
	}
	return &nc, nil
}

// GetLines obtiene las líneas de la nota de crédito.
func (r *CreditNoteRepo) GetLines(creditNoteID string) ([]*entity.CreditNoteLine, error) {
	query := `
		SELECT id, credit_note_id, item_code, description, quantity, unit_price,
		       subtotal, iva_rate, iva_clase, ice_rate
		FROM credit_note_lines WHERE credit_note_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, creditNoteID)
	if err != nil {
		return nil, fmt.Errorf("list credit note lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.CreditNoteLine
	for rows.Next() {
		var l entity.CreditNoteLine
		if err := rows.Scan(&l.ID, &l.CreditNoteID, &l.ItemCode, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.Subtotal,
			&l.IVARate, &l.IVAClase, &l.ICERate); err != nil {
			return nil, fmt.Errorf("scan credit note line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// ReturnedQuantity suma lo ya devuelto de un ítem de la factura en otras
// notas de crédito; protege el tope de cantidad retornable.
func (r *CreditNoteRepo) ReturnedQuantity(invoiceID, itemCode string) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM credit_note_lines l
		JOIN credit_notes nc ON nc.id = l.credit_note_id
		WHERE nc.invoice_id = $1 AND l.item_code = $2`
	var total decimal.Decimal
	if err := r.q.QueryRow(context.Background(), query, invoiceID, itemCode).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("returned quantity: %w", err)
	}
	return total, nil
}

// Delete elimina la nota de crédito con sus líneas. Llamado dentro del
// TxRunner para que la eliminación sea atómica.
func (r *CreditNoteRepo) Delete(id string) error {
	ctx := context.Background()
	if _, err := r.q.Exec(ctx, `DELETE FROM credit_note_lines WHERE credit_note_id = $1`, id); err != nil {
		return fmt.Errorf("delete credit note lines: %w", err)
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM credit_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credit note: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MaxSecuencial devuelve el mayor secuencial de nota de crédito observado
// bajo el prefijo (estab, ptoEmi); 0 si no hay notas. Para reseed.
func (r *CreditNoteRepo) MaxSecuencial(estab, ptoEmi string) (int64, error) {
	const query = `
		SELECT COALESCE(MAX(secuencial::bigint), 0)
		FROM credit_notes
		WHERE estab = $1 AND pto_emi = $2 AND secuencial <> ''`
	var max int64
	if err := r.q.QueryRow(context.Background(), query, estab, ptoEmi).Scan(&max); err != nil {
		return 0, fmt.Errorf("max secuencial notas de crédito: %w", err)
	}
	return max, nil
}
