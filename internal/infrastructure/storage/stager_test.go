package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/infrastructure/storage"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

func newStager(t *testing.T) *storage.Stager {
	t.Helper()
	s, err := storage.NewStager(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	return s
}

func TestNewStager_CreaElArbolDeEtapas(t *testing.T) {
	s := newStager(t)
	for _, d := range []string{
		"GENERADOS", "FIRMADOS", "FIRMADOS/PENDIENTES", "FIRMADOS/Rechazados",
		"AUTORIZADOS", "NO_AUTORIZADOS",
	} {
		info, err := os.Stat(filepath.Join(s.Root(), d))
		require.NoErrorf(t, err, "la carpeta %s debe existir", d)
		assert.True(t, info.IsDir())
	}
}

func TestWriteNewYMove_PorLasEtapas(t *testing.T) {
	s := newStager(t)

	p, err := s.WriteNew(queue.StateGenerado, queue.OriginNinguno, "001-001-000000001.xml", []byte("<factura/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "GENERADOS", "001-001-000000001.xml"), p)

	p2, err := s.Move(p, queue.StateEnviado, queue.OriginNinguno)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "FIRMADOS", "PENDIENTES", "001-001-000000001.xml"), p2)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err), "el archivo no debe quedar duplicado en la etapa anterior")

	data, err := s.Read(p2)
	require.NoError(t, err)
	assert.Equal(t, "<factura/>", string(data))
}

// El destino del rechazo depende del origen: Recepción → Rechazados,
// Autorización → NO_AUTORIZADOS.
func TestMove_RuteoDeRechazosPorOrigen(t *testing.T) {
	s := newStager(t)

	p, err := s.WriteNew(queue.StateEnviado, queue.OriginNinguno, "a.xml", []byte("<x/>"))
	require.NoError(t, err)
	rechazado, err := s.Move(p, queue.StateDevuelto, queue.OriginRecepcion)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "FIRMADOS", "Rechazados", "a.xml"), rechazado)

	q, err := s.WriteNew(queue.StateEnviado, queue.OriginNinguno, "b.xml", []byte("<x/>"))
	require.NoError(t, err)
	noAut, err := s.Move(q, queue.StateDevuelto, queue.OriginAutorizacion)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "NO_AUTORIZADOS", "b.xml"), noAut)
}

func TestMove_ArchivoAusenteFallaAlto(t *testing.T) {
	s := newStager(t)
	_, err := s.Move(filepath.Join(s.Root(), "GENERADOS", "nada.xml"), queue.StateFirmado, queue.OriginNinguno)
	assert.ErrorIs(t, err, domain.ErrXMLFileMissing)
}

func TestRead_ArchivoAusenteFallaAlto(t *testing.T) {
	s := newStager(t)
	_, err := s.Read(filepath.Join(s.Root(), "GENERADOS", "nada.xml"))
	assert.ErrorIs(t, err, domain.ErrXMLFileMissing)
}

// Replace conserva el original: la limpieza es responsabilidad del caller una
// vez persistido el nuevo estado.
func TestReplace_ConservaElOriginal(t *testing.T) {
	s := newStager(t)

	p, err := s.WriteNew(queue.StateGenerado, queue.OriginNinguno, "c.xml", []byte("<sinfirma/>"))
	require.NoError(t, err)

	p2, err := s.Replace(p, queue.StateFirmado, queue.OriginNinguno, []byte("<confirma/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "FIRMADOS", "c.xml"), p2)

	orig, err := s.Read(p)
	require.NoError(t, err, "el original debe seguir existiendo hasta que el caller lo retire")
	assert.Equal(t, "<sinfirma/>", string(orig))

	require.NoError(t, s.Remove(p))
	_, err = s.Read(p)
	assert.Error(t, err)
}

func TestRemove_EsIdempotente(t *testing.T) {
	s := newStager(t)
	assert.NoError(t, s.Remove(filepath.Join(s.Root(), "GENERADOS", "nada.xml")))
}

func TestStageDir_EstadosSinCarpeta(t *testing.T) {
	s := newStager(t)
	p, err := s.WriteNew(queue.StateGenerado, queue.OriginNinguno, "d.xml", []byte("<x/>"))
	require.NoError(t, err)

	_, err = s.Move(p, queue.StateCancelado, queue.OriginNinguno)
	assert.Error(t, err, "Cancelado no tiene carpeta de etapa: el archivo no se mueve")
}
