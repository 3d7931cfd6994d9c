package dto

import "time"

// CreateCompanyRequest body para POST /api/companies.
type CreateCompanyRequest struct {
	RazonSocial           string `json:"razon_social"`
	NombreComercial       string `json:"nombre_comercial,omitempty"`
	RUC                   string `json:"ruc"` // 13 dígitos
	DirMatriz             string `json:"dir_matriz"`
	ObligadoContabilidad  bool   `json:"obligado_contabilidad"`
	ContribuyenteEspecial string `json:"contribuyente_especial,omitempty"`
	Email                 string `json:"email,omitempty"`
	Phone                 string `json:"phone,omitempty"`
}

// CompanyResponse empresa en respuestas.
type CompanyResponse struct {
	ID                    string    `json:"id"`
	RazonSocial           string    `json:"razon_social"`
	NombreComercial       string    `json:"nombre_comercial,omitempty"`
	RUC                   string    `json:"ruc"`
	DirMatriz             string    `json:"dir_matriz"`
	ObligadoContabilidad  bool      `json:"obligado_contabilidad"`
	ContribuyenteEspecial string    `json:"contribuyente_especial,omitempty"`
	Email                 string    `json:"email,omitempty"`
	Phone                 string    `json:"phone,omitempty"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"` // RUC, cédula o pasaporte
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Address   string    `json:"address,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateEstablishmentRequest body para POST /api/establishments.
type CreateEstablishmentRequest struct {
	Code    string `json:"code"` // 3 dígitos, ej. "001"
	Name    string `json:"name"`
	Address string `json:"address"`
}

// EstablishmentResponse establecimiento en respuestas.
type EstablishmentResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
