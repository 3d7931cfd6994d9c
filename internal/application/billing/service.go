// Package billing crea los documentos tributarios (facturas y notas de
// crédito) que después viajan por la cola SRI. La numeración legal NO se
// asigna aquí: la entrega el allocator en el momento del submit.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josfe/facturacion-sri/internal/application/dto"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
)

// TxRunner puerto de transacciones: cabecera, líneas y pagos de un documento
// se persisten completos o no se persisten.
type TxRunner interface {
	RunInvoice(ctx context.Context, fn func(repo repository.InvoiceRepository) error) error
	RunCreditNote(ctx context.Context, fn func(
		ncRepo repository.CreditNoteRepository,
		invRepo repository.InvoiceRepository,
	) error) error
}

// Service casos de uso de creación y consulta de documentos.
type Service struct {
	tx           TxRunner
	invoiceRepo  repository.InvoiceRepository
	creditRepo   repository.CreditNoteRepository
	customerRepo repository.CustomerRepository
	queueRepo    repository.QueueRepository
}

// NewService construye el servicio de facturación.
func NewService(
	tx TxRunner,
	invoiceRepo repository.InvoiceRepository,
	creditRepo repository.CreditNoteRepository,
	customerRepo repository.CustomerRepository,
	queueRepo repository.QueueRepository,
) *Service {
	return &Service{
		tx:           tx,
		invoiceRepo:  invoiceRepo,
		creditRepo:   creditRepo,
		customerRepo: customerRepo,
		queueRepo:    queueRepo,
	}
}

// CreateInvoice persiste la factura con sus líneas y pagos en una sola
// transacción y devuelve el ID. El submit a la cola es un paso aparte.
func (s *Service) CreateInvoice(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (string, error) {
	if in.CustomerID == "" || in.LocationID == "" {
		return "", fmt.Errorf("%w: customer_id y location_id son requeridos", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return "", fmt.Errorf("%w: la factura necesita al menos una línea", domain.ErrInvalidInput)
	}
	customer, err := s.customerRepo.GetByID(in.CustomerID)
	if err != nil {
		return "", err
	}
	if customer.CompanyID != companyID {
		return "", domain.ErrForbidden
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	now := time.Now()
	inv := &entity.Invoice{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		CustomerID: in.CustomerID,
		LocationID: in.LocationID,
		Date:       date,
		Subtotal:   in.Subtotal,
		TaxTotal:   in.TaxTotal,
		Descuento:  in.Descuento,
		GrandTotal: in.GrandTotal,
		Propina:    in.Propina,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.tx.RunInvoice(ctx, func(repo repository.InvoiceRepository) error {
		if err := repo.Create(inv); err != nil {
			return err
		}
		for _, l := range in.Lines {
			line := &entity.InvoiceLine{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				ItemCode:    l.ItemCode,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Discount:    l.Discount,
				Subtotal:    l.Subtotal,
				IVARate:     l.IVARate,
				IVAClase:    l.IVAClase,
				ICERate:     l.ICERate,
			}
			if err := repo.CreateLine(line); err != nil {
				return err
			}
		}
		for _, p := range in.Payments {
			pay := &entity.InvoicePayment{
				ID:        uuid.New().String(),
				InvoiceID: inv.ID,
				FormaPago: p.FormaPago,
				Total:     p.Total,
				Plazo:     p.Plazo,
				Unidad:    p.Unidad,
			}
			if err := repo.CreatePayment(pay); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return inv.ID, nil
}

// CreateCreditNote persiste la nota de crédito contra una factura existente.
// La factura debe tener numeración asignada: una nota de crédito siempre
// referencia un documento sustento ya emitido.
func (s *Service) CreateCreditNote(ctx context.Context, companyID string, in dto.CreateCreditNoteRequest) (string, error) {
	if in.InvoiceID == "" {
		return "", fmt.Errorf("%w: invoice_id es requerido", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return "", fmt.Errorf("%w: la nota de crédito necesita al menos una línea", domain.ErrInvalidInput)
	}

	var ncID string
	err := s.tx.RunCreditNote(ctx, func(
		ncRepo repository.CreditNoteRepository,
		invRepo repository.InvoiceRepository,
	) error {
		inv, err := invRepo.GetByID(in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.CompanyID != companyID {
			return domain.ErrForbidden
		}
		if inv.Secuencial == "" {
			return fmt.Errorf("%w: la factura aún no tiene numeración asignada", domain.ErrConflict)
		}

		locationID := in.LocationID
		if locationID == "" {
			locationID = inv.LocationID
		}
		date := in.Date
		if date.IsZero() {
			date = time.Now()
		}
		now := time.Now()
		nc := &entity.CreditNote{
			ID:            uuid.New().String(),
			CompanyID:     companyID,
			CustomerID:    inv.CustomerID,
			LocationID:    locationID,
			Date:          date,
			InvoiceID:     inv.ID,
			InvoiceNumero: inv.NumeroCompleto(),
			InvoiceDate:   inv.Date,
			Motivo:        in.Motivo,
			Subtotal:      in.Subtotal,
			TaxTotal:      in.TaxTotal,
			GrandTotal:    in.GrandTotal,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := ncRepo.Create(nc); err != nil {
			return err
		}
		for _, l := range in.Lines {
			line := &entity.CreditNoteLine{
				ID:           uuid.New().String(),
				CreditNoteID: nc.ID,
				ItemCode:     l.ItemCode,
				Description:  l.Description,
				Quantity:     l.Quantity,
				UnitPrice:    l.UnitPrice,
				Subtotal:     l.Subtotal,
				IVARate:      l.IVARate,
				IVAClase:     l.IVAClase,
				ICERate:      l.ICERate,
			}
			if err := ncRepo.CreateLine(line); err != nil {
				return err
			}
		}
		ncID = nc.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return ncID, nil
}

// GetInvoice devuelve la factura con detalle, pagos y su entrada de cola si existe.
func (s *Service) GetInvoice(companyID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	lines, err := s.invoiceRepo.GetLines(invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.invoiceRepo.GetPayments(invoiceID)
	if err != nil {
		return nil, err
	}

	out := &dto.InvoiceResponse{
		ID:         inv.ID,
		CompanyID:  inv.CompanyID,
		CustomerID: inv.CustomerID,
		LocationID: inv.LocationID,
		Date:       inv.Date,
		Subtotal:   inv.Subtotal,
		TaxTotal:   inv.TaxTotal,
		Descuento:  inv.Descuento,
		GrandTotal: inv.GrandTotal,
		Propina:    inv.Propina,
	}
	if inv.Secuencial != "" {
		out.Numero = inv.NumeroCompleto()
		out.ClaveAcceso = inv.ClaveAcceso
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.InvoiceLineResponse{
			ID: l.ID, ItemCode: l.ItemCode, Description: l.Description,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount,
			Subtotal: l.Subtotal, IVARate: l.IVARate, IVAClase: l.IVAClase, ICERate: l.ICERate,
		})
	}
	for _, p := range payments {
		out.Payments = append(out.Payments, dto.PaymentResponse{
			ID: p.ID, FormaPago: p.FormaPago, Total: p.Total, Plazo: p.Plazo, Unidad: p.Unidad,
		})
	}
	if e, err := s.queueRepo.GetByRef(entity.DocFactura, invoiceID); err == nil {
		out.Queue = ToQueueEntryResponse(e)
	}
	return out, nil
}

// GetCreditNote devuelve la nota de crédito con detalle y su entrada de cola.
func (s *Service) GetCreditNote(companyID, creditNoteID string) (*dto.CreditNoteResponse, error) {
	nc, err := s.creditRepo.GetByID(creditNoteID)
	if err != nil {
		return nil, err
	}
	if nc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	lines, err := s.creditRepo.GetLines(creditNoteID)
	if err != nil {
		return nil, err
	}

	out := &dto.CreditNoteResponse{
		ID:            nc.ID,
		CompanyID:     nc.CompanyID,
		CustomerID:    nc.CustomerID,
		LocationID:    nc.LocationID,
		Date:          nc.Date,
		InvoiceID:     nc.InvoiceID,
		InvoiceNumero: nc.InvoiceNumero,
		Motivo:        nc.Motivo,
		Subtotal:      nc.Subtotal,
		TaxTotal:      nc.TaxTotal,
		GrandTotal:    nc.GrandTotal,
	}
	if nc.Secuencial != "" {
		out.Numero = nc.NumeroCompleto()
		out.ClaveAcceso = nc.ClaveAcceso
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.InvoiceLineResponse{
			ID: l.ID, ItemCode: l.ItemCode, Description: l.Description,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal,
			IVARate: l.IVARate, IVAClase: l.IVAClase, ICERate: l.ICERate,
		})
	}
	if e, err := s.queueRepo.GetByRef(entity.DocNotaCredito, creditNoteID); err == nil {
		out.Queue = ToQueueEntryResponse(e)
	}
	return out, nil
}

// DeleteInvoice elimina una factura que aún no se autoriza. La entrada de
// cola asociada debe retirarse antes, vía el orquestador.
func (s *Service) DeleteInvoice(ctx context.Context, companyID, invoiceID string) error {
	inv, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return err
	}
	if inv.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return s.tx.RunInvoice(ctx, func(repo repository.InvoiceRepository) error {
		return repo.Delete(invoiceID)
	})
}

// DeleteCreditNote elimina una nota de crédito que aún no se autoriza.
func (s *Service) DeleteCreditNote(ctx context.Context, companyID, creditNoteID string) error {
	nc, err := s.creditRepo.GetByID(creditNoteID)
	if err != nil {
		return err
	}
	if nc.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return s.tx.RunCreditNote(ctx, func(
		ncRepo repository.CreditNoteRepository,
		_ repository.InvoiceRepository,
	) error {
		return ncRepo.Delete(creditNoteID)
	})
}

// ToQueueEntryResponse mapea la entrada de cola al DTO de respuesta.
func ToQueueEntryResponse(e *entity.QueueEntry) *dto.QueueEntryResponse {
	return &dto.QueueEntryResponse{
		ID:                 e.ID,
		CompanyID:          e.CompanyID,
		LocationID:         e.LocationID,
		RefDocType:         string(e.RefDocType),
		RefID:              e.RefID,
		State:              string(e.State),
		ClaveAcceso:        e.ClaveAcceso,
		Numero:             e.Numero,
		LastError:          e.LastError,
		RejectOrigin:       string(e.RejectOrigin),
		NumeroAutorizacion: e.NumeroAutorizacion,
		FechaAutorizacion:  e.FechaAutorizacion,
		PollAttempts:       e.PollAttempts,
		LastTransitionAt:   e.LastTransitionAt,
		LastTransitionBy:   e.LastTransitionBy,
		CreatedAt:          e.CreatedAt,
	}
}
