package sim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/engine/terrain/meshdump"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Body.Name = "Pebble"
	cfg.Body.Radius = 1000
	cfg.Body.SpinRate = 0.01
	cfg.LOD.EdgeSubdivisions = 1
	cfg.LOD.HardLimitLevel = 6
	cfg.Workers.Count = 2
	cfg.Simulation.Ticks = 40
	cfg.Simulation.StartAltitude = 5000
	cfg.Simulation.EndAltitude = 5
	return cfg
}

func newTestSimulation(t *testing.T) *Simulation {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunDescendsAndSubdivides(t *testing.T) {
	s := newTestSimulation(t)

	require.NoError(t, s.Run(context.Background()))

	st := s.Sphere().Stats()
	require.Equal(t, uint64(40), st.Tick)
	require.Greater(t, st.MaxLevel, 0)
	require.LessOrEqual(t, st.MaxLevel, 6)
	require.Greater(t, st.Splits, uint64(0))
	require.Equal(t, st.Patches, st.Active)
	require.InDelta(t, 5, s.Camera().Altitude, 1e-6)

	hit, ok := s.Ground()
	require.True(t, ok)
	require.InDelta(t, 5, hit.Distance, 1e-6)
	require.Greater(t, hit.Patch.Level(), 0)
	require.LessOrEqual(t, hit.Patch.Level(), st.MaxLevel)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestSimulation(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	require.Equal(t, uint64(0), s.Sphere().Stats().Tick)
}

func TestNewRejectsBadLOD(t *testing.T) {
	cfg := testConfig()
	cfg.LOD.EdgeSubdivisions = 9
	_, err := New(cfg)
	require.Error(t, err)
}

func TestWriteDump(t *testing.T) {
	s := newTestSimulation(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Step())
	}

	path := filepath.Join(t.TempDir(), "sphere.qsmd")
	require.NoError(t, s.WriteDump(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d, err := meshdump.Read(f)
	require.NoError(t, err)
	require.Equal(t, 1000.0, d.Radius)
	require.Len(t, d.Patches, len(s.Sphere().RenderPatches()))
	for _, p := range d.Patches {
		require.Equal(t, 9, p.Mesh.VertexCount())
	}
}

func TestMetricsServerHandlers(t *testing.T) {
	newTestSimulation(t)
	srv := NewMetricsServer("127.0.0.1:0")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "lod_patches")
}
