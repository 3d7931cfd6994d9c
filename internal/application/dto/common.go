package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse confirmación simple de una acción sin cuerpo propio.
type StatusResponse struct {
	Status string `json:"status"`
}
