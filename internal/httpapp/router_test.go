package httpapp

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotplate-dev/hotplate/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewServesStaticFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html>home</html>")

	cfg := config.New(root, root)
	handler := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "home")
}

func TestNewSPAFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.html", "<html>spa</html>")

	cfg := config.New(root, root)
	cfg.SPAFallbackFile = "app.html"
	handler := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/some/client/route", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spa")
}

func TestNewMountServesAlternateDirectory(t *testing.T) {
	root := t.TempDir()
	assetsDir := t.TempDir()
	writeFile(t, assetsDir, "logo.svg", "<svg/>")

	cfg := config.New(root, root)
	cfg.Mounts = []config.Mount{{URLPath: "/assets", Dir: assetsDir}}
	handler := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/assets/logo.svg", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg/>")
}

func TestNewAppliesCustomHeaders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "hi")

	cfg := config.New(root, root)
	cfg.Headers = []config.Header{{Name: "X-Custom", Value: "yes"}}
	handler := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "yes", rec.Header().Get("X-Custom"))
}

func TestNewAppliesCORS(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "hi")
	cfg := config.New(root, root)
	handler := New(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/index.html", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
