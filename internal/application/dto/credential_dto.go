package dto

import "time"

// UploadCredentialRequest body para POST /api/credentials: registra la firma
// .p12 de la empresa y extrae el par PEM que consume el firmador.
type UploadCredentialRequest struct {
	P12Path     string `json:"p12_path"`
	P12Password string `json:"p12_password"`
	Ambiente    string `json:"ambiente"` // "1" pruebas | "2" producción
}

// CredentialResponse firma electrónica en respuestas. Nunca expone la
// contraseña ni las rutas de la llave privada.
type CredentialResponse struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	Ambiente   string    `json:"ambiente"`
	Activa     bool      `json:"activa"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}
