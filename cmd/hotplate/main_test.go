package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotplate-dev/hotplate/internal/config"
)

// resetFlags restores every package-level flag var to the documented
// default, so tests that mutate them don't bleed into one another.
func resetFlags(t *testing.T) {
	t.Helper()
	flagHost = "0.0.0.0"
	flagPort = 5500
	flagCert = ""
	flagKey = ""
	flagHTTPS = false
	flagNoLiveReload = false
	flagFullReload = false
	flagWatchExtensions = nil
	flagIgnoreGlobs = nil
	flagSPAFallback = ""
	flagProxyBase = ""
	flagProxyTarget = ""
	flagMounts = nil
	flagHeaders = nil
	flagNoEventLog = false
	flagMCP = false
	t.Cleanup(func() {
		flagHost = "0.0.0.0"
		flagPort = 5500
		flagCert = ""
		flagKey = ""
		flagHTTPS = false
		flagNoLiveReload = false
		flagFullReload = false
		flagWatchExtensions = nil
		flagIgnoreGlobs = nil
		flagSPAFallback = ""
		flagProxyBase = ""
		flagProxyTarget = ""
		flagMounts = nil
		flagHeaders = nil
		flagNoEventLog = false
		flagMCP = false
	})
}

func TestApplyFlagOverridesLeavesDefaultsUntouched(t *testing.T) {
	resetFlags(t)
	cfg := config.New("/srv/site", "/srv/site")
	before := cfg

	applyFlagOverrides(&cfg)

	assert.Equal(t, before.Host, cfg.Host)
	assert.Equal(t, before.Port, cfg.Port)
	assert.True(t, cfg.LiveReload)
	assert.False(t, cfg.FullReload)
}

func TestApplyFlagOverridesAppliesExplicitValues(t *testing.T) {
	resetFlags(t)
	flagHost = "127.0.0.1"
	flagPort = 9000
	flagNoLiveReload = true
	flagFullReload = true
	flagSPAFallback = "index.html"
	flagProxyBase = "/api"
	flagProxyTarget = "http://localhost:3000"
	flagNoEventLog = true

	cfg := config.New("/srv/site", "/srv/site")
	applyFlagOverrides(&cfg)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.LiveReload)
	assert.True(t, cfg.FullReload)
	assert.Equal(t, "index.html", cfg.SPAFallbackFile)
	assert.Equal(t, "/api", cfg.ProxyBase)
	assert.Equal(t, "http://localhost:3000", cfg.ProxyTarget)
	assert.False(t, cfg.EventLogEnabled)
}

func TestApplyFlagOverridesMergesMountsAndHeaders(t *testing.T) {
	resetFlags(t)
	flagMounts = []string{"/assets:./dist/assets"}
	flagHeaders = []string{"X-Frame-Options: DENY"}

	cfg := config.New("/srv/site", "/srv/site")
	applyFlagOverrides(&cfg)

	require.Len(t, cfg.Mounts, 1)
	assert.Equal(t, config.Mount{URLPath: "/assets", Dir: "./dist/assets"}, cfg.Mounts[0])

	require.Len(t, cfg.Headers, 1)
	assert.Equal(t, config.Header{Name: "X-Frame-Options", Value: "DENY"}, cfg.Headers[0])
}

func TestBuildConfigAppliesFlagsOverSettings(t *testing.T) {
	resetFlags(t)
	flagPort = 6000

	root := t.TempDir()
	cfg, err := buildConfig(root, root)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, root, cfg.Root)
}

func TestBuildConfigRejectsInvalidConfig(t *testing.T) {
	resetFlags(t)
	flagProxyBase = "/api"

	root := t.TempDir()
	_, err := buildConfig(root, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy-target")
}

func TestParseMountsSkipsMalformedEntries(t *testing.T) {
	mounts := parseMounts([]string{"/assets:./public", "garbage", "/docs:./docs"})
	require.Len(t, mounts, 2)
	assert.Equal(t, config.Mount{URLPath: "/assets", Dir: "./public"}, mounts[0])
	assert.Equal(t, config.Mount{URLPath: "/docs", Dir: "./docs"}, mounts[1])
}

func TestParseHeadersTrimsNameAndValue(t *testing.T) {
	headers := parseHeaders([]string{"X-Custom:  yes ", "garbage"})
	require.Len(t, headers, 1)
	assert.Equal(t, config.Header{Name: "X-Custom", Value: "yes"}, headers[0])
}

