package entity

import "time"

// Company representa una organización/tenant del sistema (multi-tenant, enfoque Ecuador).
type Company struct {
	ID                    string
	RazonSocial           string
	NombreComercial       string
	RUC                   string // RUC ecuatoriano (13 dígitos)
	DirMatriz             string // dirección de la matriz, obligatoria en el XML
	ObligadoContabilidad  bool   // <obligadoContabilidad>SI/NO
	ContribuyenteEspecial string // número de resolución; vacío si no aplica
	Email                 string
	Phone                 string
	Status                string // active, suspended, inactive
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
