package integration

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/internal/estimate"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	rest "github.com/fyrsmithlabs/estimator/internal/server"
	"github.com/fyrsmithlabs/estimator/internal/store"
	"github.com/fyrsmithlabs/estimator/pkg/client"
)

// startTestDaemon wires the daemon stack in-process for integration
// tests: SQLite store, scope config folder, heuristic provider, and the
// REST surface behind an httptest listener. The heuristic provider
// keeps the tests offline and deterministic.
func startTestDaemon(t *testing.T) *client.Client {
	t.Helper()

	dataDir := t.TempDir()
	logger := logging.NewNop()

	st, err := store.New(filepath.Join(dataDir, "projects.db"))
	require.NoError(t, err, "Should open the project store")
	t.Cleanup(func() { _ = st.Close() })

	scope, err := scopecfg.NewFolder(filepath.Join(dataDir, "scope_config"))
	require.NoError(t, err, "Should create the scope config folder")

	provider, err := estimate.New(config.EstimatorConfig{Provider: config.ProviderHeuristic}, logger)
	require.NoError(t, err, "Should build the heuristic provider")
	pipeline := estimate.NewService(provider, logger)

	api, err := rest.New(st, scope, pipeline, logger, rest.Config{
		ProjectsDir: filepath.Join(dataDir, "projects"),
	})
	require.NoError(t, err, "Should build the REST surface")

	e := echo.New()
	e.HideBanner = true
	api.Register(e)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)

	return client.New(ts.URL)
}

// writeTestFile drops contents into the test's temp space and returns
// the path. The extension of name decides how the server treats it.
func writeTestFile(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644), "Should write test file")
	return path
}

// scopeSheetCSV is a minimal scope config whose hours column overrides
// the built-in sizing rules.
const scopeSheetCSV = `Size,Dev Hours
X-Small,4
Small,10
Medium,40
Large,80
X-Large,160
`

// requirementsDoc drives the heuristic extractor to two products:
// Billing Portal with three features (Medium) and Admin Console with
// two (Small).
const requirementsDoc = `Project Phoenix requirements

Product: Billing Portal
Features: invoice list, payment capture, refund handling

Product: Admin Console
- user management
- audit log
`
