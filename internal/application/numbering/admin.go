package numbering

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

// Admin operaciones administrativas de las series: alta de puntos de emisión,
// inicialización/edición de contadores, reseed y bitácora.
type Admin struct {
	allocator   *Allocator
	epRepo      repository.EmissionPointRepository
	logRepo     repository.SequenceLogRepository
	invoiceRepo repository.InvoiceRepository
	creditRepo  repository.CreditNoteRepository
}

// NewAdmin construye el servicio administrativo de series.
func NewAdmin(
	allocator *Allocator,
	epRepo repository.EmissionPointRepository,
	logRepo repository.SequenceLogRepository,
	invoiceRepo repository.InvoiceRepository,
	creditRepo repository.CreditNoteRepository,
) *Admin {
	return &Admin{
		allocator:   allocator,
		epRepo:      epRepo,
		logRepo:     logRepo,
		invoiceRepo: invoiceRepo,
		creditRepo:  creditRepo,
	}
}

// ParseDocType valida el nombre de un tipo de comprobante.
func ParseDocType(s string) (entity.DocType, error) {
	for _, dt := range entity.AllDocTypes {
		if string(dt) == s {
			return dt, nil
		}
	}
	return "", fmt.Errorf("%w: tipo de comprobante desconocido %q", domain.ErrInvalidInput, s)
}

// CreateEmissionPoint da de alta un punto de emisión Activo con los seis
// contadores en cero (sin inicializar). Solo puede haber uno Activo por
// establecimiento: si ya existe, hay que desactivarlo primero.
func (a *Admin) CreateEmissionPoint(in dto.CreateEmissionPointRequest) (*dto.EmissionPointResponse, error) {
	if in.LocationID == "" || len(in.Estab) != 3 || len(in.PtoEmi) != 3 {
		return nil, fmt.Errorf("%w: location_id, estab (3 dígitos) y pto_emi (3 dígitos) son requeridos", domain.ErrInvalidInput)
	}
	if _, err := a.epRepo.GetActiveByLocation(in.LocationID); err == nil {
		return nil, fmt.Errorf("%w: el establecimiento ya tiene un punto de emisión activo", domain.ErrConflict)
	}
	now := time.Now()
	ep := &entity.EmissionPointCounter{
		ID:              uuid.New().String(),
		EstablishmentID: in.LocationID,
		Estab:           in.Estab,
		PtoEmi:          in.PtoEmi,
		Estado:          entity.EmissionPointActivo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.epRepo.Create(ep); err != nil {
		return nil, err
	}
	return toEmissionPointResponse(ep), nil
}

// Peek devuelve los próximos secuenciales del punto de emisión activo, sin
// asignarlos ni bloquear la fila.
func (a *Admin) Peek(ctx context.Context, locationID string) (*dto.SeriesPeekResponse, error) {
	ep, err := a.epRepo.GetActiveByLocation(locationID)
	if err != nil {
		return nil, err
	}
	next := make(map[string]int64, len(entity.AllDocTypes))
	for _, dt := range entity.AllDocTypes {
		v, err := ep.Counter(dt)
		if err != nil {
			return nil, err
		}
		next[string(dt)] = v
	}
	return &dto.SeriesPeekResponse{
		EmissionPointID: ep.ID,
		Estab:           ep.Estab,
		PtoEmi:          ep.PtoEmi,
		Initiated:       ep.Initiated,
		Next:            next,
	}, nil
}

// InitiateOrEdit fija administrativamente el valor de un contador, con las
// reglas del allocator: INIT eleva el resto a >= 1; después, nunca retrocede.
func (a *Admin) InitiateOrEdit(ctx context.Context, in dto.InitiateSeriesRequest, actor string) error {
	dt, err := ParseDocType(in.DocType)
	if err != nil {
		return err
	}
	return a.allocator.InitiateOrEdit(ctx, in.LocationID, dt, in.Value, actor, in.Note)
}

// Reseed recalcula el contador tras la remoción excepcional de un
// comprobante: próximo = máximo secuencial observado + 1.
func (a *Admin) Reseed(ctx context.Context, in ReseedInput) (*dto.ReseedSeriesResponse, error) {
	dt, err := ParseDocType(in.DocType)
	if err != nil {
		return nil, err
	}
	ep, err := a.epRepo.GetActiveByLocation(in.LocationID)
	if err != nil {
		return nil, err
	}

	var observedMax int64
	switch dt {
	case entity.DocFactura:
		observedMax, err = a.invoiceRepo.MaxSecuencial(ep.Estab, ep.PtoEmi)
	case entity.DocNotaCredito:
		observedMax, err = a.creditRepo.MaxSecuencial(ep.Estab, ep.PtoEmi)
	default:
		// Los demás tipos aún no emiten comprobantes desde este sistema.
		observedMax = 0
	}
	if err != nil {
		return nil, err
	}

	next, noDocs, err := a.allocator.Reseed(ctx, in.LocationID, dt, observedMax, in.Actor, in.Note)
	if err != nil {
		return nil, err
	}
	return &dto.ReseedSeriesResponse{Next: next, NoDocuments: noDocs}, nil
}

// ReseedInput parámetros del reseed.
type ReseedInput struct {
	LocationID string
	DocType    string
	Actor      string
	Note       string
}

// Deactivate marca el punto de emisión como Inactivo.
func (a *Admin) Deactivate(id string) error {
	return a.epRepo.Deactivate(id)
}

// ListLog devuelve la bitácora de cambios de secuenciales del punto de emisión.
func (a *Admin) ListLog(emissionPointID string) ([]*dto.SequenceLogResponse, error) {
	list, err := a.logRepo.ListByEmissionPoint(emissionPointID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SequenceLogResponse, 0, len(list))
	for _, l := range list {
		out = append(out, &dto.SequenceLogResponse{
			ID:              l.ID,
			EmissionPointID: l.EmissionPointID,
			DocType:         string(l.DocType),
			OldValue:        l.OldValue,
			NewValue:        l.NewValue,
			Actor:           l.Actor,
			Note:            l.Note,
			CreatedAt:       l.CreatedAt,
		})
	}
	return out, nil
}

// ListEmissionPoints lista los puntos de emisión del establecimiento.
func (a *Admin) ListEmissionPoints(locationID string) ([]*dto.EmissionPointResponse, error) {
	list, err := a.epRepo.ListByLocation(locationID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.EmissionPointResponse, 0, len(list))
	for _, ep := range list {
		out = append(out, toEmissionPointResponse(ep))
	}
	return out, nil
}

func toEmissionPointResponse(ep *entity.EmissionPointCounter) *dto.EmissionPointResponse {
	counters := make(map[string]int64, len(entity.AllDocTypes))
	for _, dt := range entity.AllDocTypes {
		v, _ := ep.Counter(dt)
		counters[string(dt)] = v
	}
	return &dto.EmissionPointResponse{
		ID:         ep.ID,
		LocationID: ep.EstablishmentID,
		Estab:      ep.Estab,
		PtoEmi:     ep.PtoEmi,
		Estado:     ep.Estado,
		Initiated:  ep.Initiated,
		Counters:   counters,
		CreatedAt:  ep.CreatedAt,
	}
}
