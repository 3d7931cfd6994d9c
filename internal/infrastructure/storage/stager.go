// Package storage implementa el área de trabajo en disco de los comprobantes:
// carpetas de etapa que espejan el estado de la cola, un archivo XML por
// comprobante, movimientos por rename atómico.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

// Carpetas de etapa bajo la raíz de trabajo.
const (
	dirGenerados     = "GENERADOS"
	dirFirmados      = "FIRMADOS"
	dirPendientes    = "FIRMADOS/PENDIENTES"
	dirRechazados    = "FIRMADOS/Rechazados"
	dirAutorizados   = "AUTORIZADOS"
	dirNoAutorizados = "NO_AUTORIZADOS"
)

// Stager adaptador de disco del puerto sri.Stager.
type Stager struct {
	root string
	log  *logger.Logger
}

// NewStager construye el stager y crea el árbol de carpetas de etapa.
func NewStager(root string, log *logger.Logger) (*Stager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolver raíz de trabajo %q: %w", root, err)
	}
	for _, d := range []string{
		dirGenerados, dirFirmados, dirPendientes, dirRechazados,
		dirAutorizados, dirNoAutorizados,
	} {
		if err := os.MkdirAll(filepath.Join(abs, d), 0o755); err != nil {
			return nil, fmt.Errorf("crear carpeta de etapa %s: %w", d, err)
		}
	}
	return &Stager{root: abs, log: log}, nil
}

// Root devuelve la raíz absoluta del área de trabajo.
func (s *Stager) Root() string { return s.root }

// stageDir resuelve la carpeta de etapa de un estado. El origen del rechazo
// decide entre Rechazados (Recepción) y NO_AUTORIZADOS (Autorización).
func stageDir(state queue.State, origin queue.RejectionOrigin) (string, error) {
	switch state {
	case queue.StateGenerado:
		return dirGenerados, nil
	case queue.StateFirmado:
		return dirFirmados, nil
	case queue.StateEnviado:
		return dirPendientes, nil
	case queue.StateAutorizado:
		return dirAutorizados, nil
	case queue.StateDevuelto:
		if origin == queue.OriginRecepcion {
			return dirRechazados, nil
		}
		return dirNoAutorizados, nil
	}
	return "", fmt.Errorf("el estado %s no tiene carpeta de etapa", state)
}

// WriteNew escribe el XML de un comprobante nuevo en la carpeta de la etapa.
func (s *Stager) WriteNew(state queue.State, origin queue.RejectionOrigin, filename string, data []byte) (string, error) {
	dir, err := stageDir(state, origin)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, dir, filename)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("escribir %s: %w", dst, err)
	}
	return dst, nil
}

// Move reubica el archivo a la carpeta de la etapa destino con os.Rename.
// La ausencia del archivo es un error fatal y ruidoso, nunca se ignora.
func (s *Stager) Move(fromPath string, to queue.State, origin queue.RejectionOrigin) (string, error) {
	if _, err := os.Stat(fromPath); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrXMLFileMissing, fromPath)
	}
	dir, err := stageDir(to, origin)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, dir, filepath.Base(fromPath))
	if dst == fromPath {
		return dst, nil
	}
	if err := os.Rename(fromPath, dst); err != nil {
		return "", fmt.Errorf("mover %s → %s: %w", fromPath, dst, err)
	}
	s.log.Debug().Str("from", fromPath).Str("to", dst).Msg("XML reubicado de etapa")
	return dst, nil
}

// Replace escribe contenido nuevo en la carpeta destino sin tocar el archivo
// original; el caller lo elimina con Remove cuando el estado quedó persistido.
func (s *Stager) Replace(fromPath string, to queue.State, origin queue.RejectionOrigin, data []byte) (string, error) {
	if _, err := os.Stat(fromPath); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrXMLFileMissing, fromPath)
	}
	dir, err := stageDir(to, origin)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, dir, filepath.Base(fromPath))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("escribir %s: %w", dst, err)
	}
	return dst, nil
}

// Read carga el archivo de trabajo; su ausencia es fatal.
func (s *Stager) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrXMLFileMissing, path)
		}
		return nil, err
	}
	return data, nil
}

// Remove elimina un archivo de etapa. Idempotente: que no exista no es error.
func (s *Stager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
