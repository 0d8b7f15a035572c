package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	Setup(v, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Backend.URL)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout)
	assert.Equal(t, "1", cfg.Backend.ThreadID)
	assert.Equal(t, 600.0, cfg.Viewer.BaseWidth)
	assert.Equal(t, "page", cfg.Viewer.ReferenceMode)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, "history.db", filepath.Base(cfg.History.Path))
	assert.False(t, cfg.NoAltScreen)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citeview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  url: http://backend:8080
  timeout: 30s
viewer:
  reference_mode: fixed
history:
  limit: 4
`), 0o644))
	t.Setenv("CITEVIEW_BACKEND_THREAD_ID", "42")

	v := viper.New()
	Setup(v, path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8080", cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "42", cfg.Backend.ThreadID)
	assert.Equal(t, "fixed", cfg.Viewer.ReferenceMode)
	assert.Equal(t, 4, cfg.History.Limit)
	assert.Equal(t, 600.0, cfg.Viewer.BaseWidth)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	v := viper.New()
	Setup(v, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	good := Config{Viewer: ViewerConfig{BaseWidth: 600, ReferenceMode: "page"}}
	require.NoError(t, good.Validate())

	bad := good
	bad.Viewer.ReferenceMode = "auto"
	assert.Error(t, bad.Validate())

	bad = good
	bad.Viewer.BaseWidth = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.History.Limit = -1
	assert.Error(t, bad.Validate())
}
