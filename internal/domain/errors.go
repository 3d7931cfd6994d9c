package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrUserNotFound          = errors.New("usuario no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrDuplicate             = errors.New("recurso duplicado")
	ErrUnauthorized          = errors.New("no autorizado")
	ErrForbidden             = errors.New("acceso denegado")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrSequenceBackward      = errors.New("el secuencial no puede retroceder")
	ErrCounterNotInitiated   = errors.New("punto de emisión sin inicializar")
	ErrNoActiveEmissionPoint = errors.New("no hay punto de emisión activo para la ubicación")
	ErrTaxMismatch           = errors.New("los impuestos calculados no cuadran con el documento")
	ErrXMLFileMissing        = errors.New("el archivo XML del comprobante no existe en disco")
	ErrSigningFailed         = errors.New("fallo al firmar el comprobante")
	ErrNoCredential          = errors.New("no hay firma electrónica activa para la compañía")
)
