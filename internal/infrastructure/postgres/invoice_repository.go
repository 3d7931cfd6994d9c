package postgres

import (
	"context"
	"fmt"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación del puerto InvoiceRepository sobre PostgreSQL.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, customer_id, location_id, date,
	estab, pto_emi, secuencial, clave_acceso,
	subtotal, tax_total, descuento, grand_total, propina,
	created_at, updated_at`

// Create persiste la cabecera de la factura. La numeración llega vacía: la
// asigna el allocator al momento del submit.
func (r *InvoiceRepo) Create(inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(context.Background(), query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.LocationID, inv.Date,
		inv.Estab, inv.PtoEmi, inv.Secuencial, inv.ClaveAcceso,
		inv.Subtotal, inv.TaxTotal, inv.Descuento, inv.GrandTotal, inv.Propina,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de detalle.
func (r *InvoiceRepo) CreateLine(line *entity.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines (
			id, invoice_id, item_code, description, quantity, unit_price,
			discount, subtotal, iva_rate, iva_clase, ice_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.InvoiceID, line.ItemCode, line.Description,
		line.Quantity, line.UnitPrice, line.Discount, line.Subtotal,
		line.IVARate, line.IVAClase, line.ICERate,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

// CreatePayment persiste una forma de pago.
func (r *InvoiceRepo) CreatePayment(p *entity.InvoicePayment) error {
	query := `
		INSERT INTO invoice_payments (id, invoice_id, forma_pago, total, plazo, unidad)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(context.Background(), query,
		p.ID, p.InvoiceID, p.FormaPago, p.Total, p.Plazo, p.Unidad,
	)
	if err != nil {
		return fmt.Errorf("insert invoice payment: %w", err)
	}
	return nil
}

// Update actualiza la numeración y la clave de acceso asignadas al submit.
func (r *InvoiceRepo) Update(inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET estab = $2, pto_emi = $3, secuencial = $4, clave_acceso = $5,
		    subtotal = $6, tax_total = $7, descuento = $8, grand_total = $9, propina = $10,
		    updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		inv.ID, inv.Estab, inv.PtoEmi, inv.Secuencial, inv.ClaveAcceso,
		inv.Subtotal, inv.TaxTotal, inv.Descuento, inv.GrandTotal, inv.Propina,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera de la factura.
func (r *InvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.LocationID, &inv.Date,
		&inv.Estab, &inv.PtoEmi, &inv.Secuencial, &inv.ClaveAcceso,
		&inv.Subtotal, &inv.TaxTotal, &inv.Descuento, &inv.GrandTotal, &inv.Propina,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// GetLines obtiene las líneas de detalle de la factura.
func (r *InvoiceRepo) GetLines(invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, item_code, description, quantity, unit_price,
		       discount, subtotal, iva_rate, iva_clase, ice_rate
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ItemCode, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.Discount, &l.Subtotal,
			&l.IVARate, &l.IVAClase, &l.ICERate); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// GetPayments obtiene las formas de pago de la factura.
func (r *InvoiceRepo) GetPayments(invoiceID string) ([]*entity.InvoicePayment, error) {
	query := `
		SELECT id, invoice_id, forma_pago, total, plazo, unidad
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice payments: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoicePayment
	for rows.Next() {
		var p entity.InvoicePayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.FormaPago, &p.Total, &p.Plazo, &p.Unidad); err != nil {
			return nil, fmt.Errorf("scan invoice payment: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// Delete elimina la factura con sus líneas y pagos. Llamado dentro del
// TxRunner para que la eliminación sea atómica.
func (r *InvoiceRepo) Delete(id string) error {
	ctx := context.Background()
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_payments WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice payments: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MaxSecuencial devuelve el mayor secuencial observado bajo el prefijo
// (estab, ptoEmi); 0 si no hay facturas. Lo usa el reseed del allocator.
func (r *InvoiceRepo) MaxSecuencial(estab, ptoEmi string) (int64, error) {
	const query = `
		SELECT COALESCE(MAX(secuencial::bigint), 0)
		FROM invoices
		WHERE estab = $1 AND pto_emi = $2 AND secuencial <> ''`
	var max int64
	if err := r.q.QueryRow(context.Background(), query, estab, ptoEmi).Scan(&max); err != nil {
		return 0, fmt.Errorf("max secuencial facturas: %w", err)
	}
	return max, nil
}
