package billing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/internal/application/billing"
	"github.com/josfe/facturacion-sri/internal/application/dto"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

type memInvoiceRepo struct {
	invoices map[string]*entity.Invoice
	lines    map[string][]*entity.InvoiceLine
	pays     map[string][]*entity.InvoicePayment
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		invoices: map[string]*entity.Invoice{},
		lines:    map[string][]*entity.InvoiceLine{},
		pays:     map[string][]*entity.InvoicePayment{},
	}
}

func (r *memInvoiceRepo) Create(inv *entity.Invoice) error {
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}
func (r *memInvoiceRepo) CreateLine(l *entity.InvoiceLine) error {
	r.lines[l.InvoiceID] = append(r.lines[l.InvoiceID], l)
	return nil
}
func (r *memInvoiceRepo) CreatePayment(p *entity.InvoicePayment) error {
	r.pays[p.InvoiceID] = append(r.pays[p.InvoiceID], p)
	return nil
}
func (r *memInvoiceRepo) Update(inv *entity.Invoice) error {
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}
func (r *memInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}
func (r *memInvoiceRepo) GetLines(id string) ([]*entity.InvoiceLine, error)      { return r.lines[id], nil }
func (r *memInvoiceRepo) GetPayments(id string) ([]*entity.InvoicePayment, error) { return r.pays[id], nil }
func (r *memInvoiceRepo) Delete(id string) error {
	if _, ok := r.invoices[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.invoices, id)
	delete(r.lines, id)
	delete(r.pays, id)
	return nil
}
func (r *memInvoiceRepo) MaxSecuencial(string, string) (int64, error) { return 0, nil }

type memCreditRepo struct {
	notes map[string]*entity.CreditNote
	lines map[string][]*entity.CreditNoteLine
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{notes: map[string]*entity.CreditNote{}, lines: map[string][]*entity.CreditNoteLine{}}
}

func (r *memCreditRepo) Create(nc *entity.CreditNote) error {
	cp := *nc
	r.notes[nc.ID] = &cp
	return nil
}
func (r *memCreditRepo) CreateLine(l *entity.CreditNoteLine) error {
	r.lines[l.CreditNoteID] = append(r.lines[l.CreditNoteID], l)
	return nil
}
func (r *memCreditRepo) Update(nc *entity.CreditNote) error {
	cp := *nc
	r.notes[nc.ID] = &cp
	return nil
}
func (r *memCreditRepo) GetByID(id string) (*entity.CreditNote, error) {
	nc, ok := r.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *nc
	return &cp, nil
}
func (r *memCreditRepo) GetLines(id string) ([]*entity.CreditNoteLine, error) { return r.lines[id], nil }
func (r *memCreditRepo) ReturnedQuantity(string, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (r *memCreditRepo) Delete(id string) error {
	if _, ok := r.notes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.notes, id)
	delete(r.lines, id)
	return nil
}
func (r *memCreditRepo) MaxSecuencial(string, string) (int64, error) { return 0, nil }

type memCustomerRepo struct{ c *entity.Customer }

func (r *memCustomerRepo) Create(*entity.Customer) error { return nil }
func (r *memCustomerRepo) Update(*entity.Customer) error { return nil }
func (r *memCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	if r.c == nil || r.c.ID != id {
		return nil, domain.ErrNotFound
	}
	return r.c, nil
}
func (r *memCustomerRepo) ListByCompany(string) ([]*entity.Customer, error) {
	return []*entity.Customer{r.c}, nil
}

type memQueueRepo struct{ byRef map[string]*entity.QueueEntry }

func (r *memQueueRepo) Create(*entity.QueueEntry) error { return nil }
func (r *memQueueRepo) Update(*entity.QueueEntry) error { return nil }
func (r *memQueueRepo) GetByID(string) (*entity.QueueEntry, error) {
	return nil, domain.ErrNotFound
}
func (r *memQueueRepo) GetByRef(dt entity.DocType, refID string) (*entity.QueueEntry, error) {
	e, ok := r.byRef[string(dt)+"/"+refID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}
func (r *memQueueRepo) GetByClaveAcceso(string) (*entity.QueueEntry, error) {
	return nil, domain.ErrNotFound
}
func (r *memQueueRepo) ListByState(string, queue.State) ([]*entity.QueueEntry, error) {
	return nil, nil
}
func (r *memQueueRepo) ListByLocation(string) ([]*entity.QueueEntry, error) { return nil, nil }
func (r *memQueueRepo) Delete(string) error                                 { return nil }

// fakeTx ejecuta los callbacks directamente sobre los repos en memoria; la
// atomicidad real la prueba la capa postgres.
type fakeTx struct {
	invs *memInvoiceRepo
	ncs  *memCreditRepo
}

func (f *fakeTx) RunInvoice(_ context.Context, fn func(repository.InvoiceRepository) error) error {
	return fn(f.invs)
}

func (f *fakeTx) RunCreditNote(_ context.Context, fn func(
	ncRepo repository.CreditNoteRepository,
	invRepo repository.InvoiceRepository,
) error) error {
	return fn(f.ncs, f.invs)
}

// ──────────────────────────────────────────────────────────────────────────────

type billingFixture struct {
	svc  *billing.Service
	invs *memInvoiceRepo
	ncs  *memCreditRepo
}

func newBillingFixture() *billingFixture {
	invs := newMemInvoiceRepo()
	ncs := newMemCreditRepo()
	svc := billing.NewService(
		&fakeTx{invs: invs, ncs: ncs},
		invs,
		ncs,
		&memCustomerRepo{c: &entity.Customer{ID: "cu-1", CompanyID: "co-1", Name: "Cliente"}},
		&memQueueRepo{byRef: map[string]*entity.QueueEntry{}},
	)
	return &billingFixture{svc: svc, invs: invs, ncs: ncs}
}

func validInvoiceRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		CustomerID: "cu-1",
		LocationID: "loc-1",
		Subtotal:   decimal.NewFromInt(100),
		TaxTotal:   decimal.NewFromInt(12),
		GrandTotal: decimal.NewFromInt(112),
		Lines: []dto.InvoiceLineRequest{{
			ItemCode: "A-1", Description: "Servicio",
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100),
			Subtotal: decimal.NewFromInt(100), IVARate: decimal.NewFromInt(12),
		}},
		Payments: []dto.PaymentRequest{{FormaPago: "01 - Efectivo", Total: decimal.NewFromInt(112)}},
	}
}

func TestCreateInvoice_PersisteCabeceraLineasYPagos(t *testing.T) {
	f := newBillingFixture()

	id, err := f.svc.CreateInvoice(context.Background(), "co-1", validInvoiceRequest())
	require.NoError(t, err)

	out, err := f.svc.GetInvoice("co-1", id)
	require.NoError(t, err)
	assert.Len(t, out.Lines, 1)
	assert.Len(t, out.Payments, 1)
	assert.Empty(t, out.Numero, "sin submit no hay numeración")
	assert.Nil(t, out.Queue, "sin submit no hay entrada de cola")
}

func TestCreateInvoice_ValidaCliente(t *testing.T) {
	f := newBillingFixture()

	in := validInvoiceRequest()
	in.CustomerID = "cu-ajeno"
	_, err := f.svc.CreateInvoice(context.Background(), "co-1", in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = validInvoiceRequest()
	in.Lines = nil
	_, err = f.svc.CreateInvoice(context.Background(), "co-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin líneas no hay factura")
}

func TestCreateInvoice_ClienteDeOtraEmpresa(t *testing.T) {
	f := newBillingFixture()
	_, err := f.svc.CreateInvoice(context.Background(), "co-2", validInvoiceRequest())
	assert.ErrorIs(t, err, domain.ErrForbidden, "el cliente pertenece a otra empresa")
}

func TestCreateCreditNote_ExigeFacturaNumerada(t *testing.T) {
	f := newBillingFixture()
	id, err := f.svc.CreateInvoice(context.Background(), "co-1", validInvoiceRequest())
	require.NoError(t, err)

	_, err = f.svc.CreateCreditNote(context.Background(), "co-1", dto.CreateCreditNoteRequest{
		InvoiceID: id,
		Motivo:    "Devolución",
		Lines: []dto.CreditNoteLineRequest{{
			ItemCode: "A-1", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(100),
		}},
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "la factura sustento aún no tiene secuencial")
}

func TestCreateCreditNote_HeredaSustentoDeLaFactura(t *testing.T) {
	f := newBillingFixture()
	id, err := f.svc.CreateInvoice(context.Background(), "co-1", validInvoiceRequest())
	require.NoError(t, err)

	// Simula el submit: la factura ya quedó numerada.
	inv := f.invs.invoices[id]
	inv.Estab, inv.PtoEmi, inv.Secuencial = "001", "002", "000000009"

	ncID, err := f.svc.CreateCreditNote(context.Background(), "co-1", dto.CreateCreditNoteRequest{
		InvoiceID:  id,
		Motivo:     "Devolución",
		Subtotal:   decimal.NewFromInt(100),
		TaxTotal:   decimal.NewFromInt(12),
		GrandTotal: decimal.NewFromInt(112),
		Lines: []dto.CreditNoteLineRequest{{
			ItemCode: "A-1", Quantity: decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, err)

	out, err := f.svc.GetCreditNote("co-1", ncID)
	require.NoError(t, err)
	assert.Equal(t, "001-002-000000009", out.InvoiceNumero, "referencia al documento sustento")
	assert.Equal(t, "cu-1", out.CustomerID, "hereda el cliente de la factura")
	assert.Equal(t, "loc-1", out.LocationID, "hereda el establecimiento si no se indica otro")
}

func TestDeleteInvoice_SoloDeLaMismaEmpresa(t *testing.T) {
	f := newBillingFixture()
	id, err := f.svc.CreateInvoice(context.Background(), "co-1", validInvoiceRequest())
	require.NoError(t, err)

	err = f.svc.DeleteInvoice(context.Background(), "co-2", id)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.DeleteInvoice(context.Background(), "co-1", id))
	_, err = f.svc.GetInvoice("co-1", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
