package observability

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/riskibarqy/peg-league/internal/config"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/stretchr/testify/require"
)

func TestInitUptrace_Disabled(t *testing.T) {
	cfg := config.Config{
		UptraceEnabled: false,
		ServiceName:    "peg-league-api",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	shutdown, err := InitUptrace(cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitPyroscope_Disabled(t *testing.T) {
	stop, err := InitPyroscope(config.Config{PyroscopeEnabled: false}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, stop())
}

func TestStartPprofServer_Disabled(t *testing.T) {
	srv, err := StartPprofServer(config.Config{PprofEnabled: false}, logging.NewNop())
	require.NoError(t, err)
	require.Nil(t, srv)
	require.NoError(t, StopPprofServer(srv, logging.NewNop(), 0))
}

func TestStartPprofServer_ServesIndex(t *testing.T) {
	srv, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	require.NoError(t, err)
	require.NotNil(t, srv)
	t.Cleanup(func() { require.NoError(t, StopPprofServer(srv, logging.NewNop(), time.Second)) })

	resp, err := http.Get("http://" + srv.Addr + "/debug/pprof/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
