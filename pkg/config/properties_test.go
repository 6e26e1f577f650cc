package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/downfa11-org/logunit/pkg/config"
	"github.com/downfa11-org/logunit/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := config.LoadConfigFrom(fs, args)
	require.NoError(t, err)
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	assert.Equal(t, config.DefaultLogPath, cfg.LogPath)
	assert.Equal(t, int64(config.DefaultRecordsPerSegment), cfg.RecordsPerSegment)
	assert.Equal(t, config.DefaultSyncIntervalMS, cfg.SyncIntervalMS)
	assert.Equal(t, config.DefaultCompactIntervalMS, cfg.CompactIntervalMS)
	assert.Equal(t, config.DataStorePebble, cfg.DataStore)
	assert.Equal(t, config.DefaultExporterPort, cfg.ExporterPort)
	assert.True(t, cfg.Verify())
}

func TestNormalizeDataStore(t *testing.T) {
	cfg := &config.Config{DataStore: " Memory "}
	cfg.Normalize()
	assert.Equal(t, config.DataStoreMemory, cfg.DataStore)

	cfg = &config.Config{DataStore: "rocks"}
	cfg.Normalize()
	assert.Equal(t, config.DataStorePebble, cfg.DataStore)
}

func TestSegmentDir(t *testing.T) {
	cfg := &config.Config{LogPath: "/var/lib/logunit"}
	assert.Equal(t, filepath.Join("/var/lib/logunit", "log"), cfg.SegmentDir())
	assert.Equal(t, filepath.Join("/var/lib/logunit", "datastore"), cfg.DataStoreDir())
}

func TestLoadConfigFlags(t *testing.T) {
	cfg := load(t, "-log-path", "/tmp/lu", "-records-per-segment", "10", "-no-verify", "true", "-log-level", "warn")

	assert.Equal(t, "/tmp/lu", cfg.LogPath)
	assert.Equal(t, int64(10), cfg.RecordsPerSegment)
	assert.False(t, cfg.Verify())
	assert.Equal(t, util.LogLevelWarn, cfg.LogLevel)
	assert.True(t, cfg.EnableExporter)
}

func TestLoadConfigFileThenExplicitFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logunit.yaml")
	yamlBody := "log_path: /from/file\nrecords_per_segment: 500\nread_cache_size: 4096\nlog_level: error\ndatastore: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg := load(t, "-config", path, "-records-per-segment", "20")

	assert.Equal(t, "/from/file", cfg.LogPath)
	assert.Equal(t, int64(20), cfg.RecordsPerSegment)
	assert.Equal(t, int64(4096), cfg.ReadCacheSize)
	assert.Equal(t, util.LogLevelError, cfg.LogLevel)
	assert.Equal(t, config.DataStoreMemory, cfg.DataStore)
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logunit.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log.path":"/json","no.verify":true,"exporter.port":9200}`), 0o644))

	cfg := load(t, "-config", path)

	assert.Equal(t, "/json", cfg.LogPath)
	assert.True(t, cfg.NoVerify)
	assert.Equal(t, 9200, cfg.ExporterPort)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LOGUNIT_LOG_PATH", "/env")
	t.Setenv("LOGUNIT_RECORDS_PER_SEGMENT", "77")
	t.Setenv("LOGUNIT_EXPORTER", "false")

	cfg := load(t, "-log-path", "/flag")

	assert.Equal(t, "/env", cfg.LogPath)
	assert.Equal(t, int64(77), cfg.RecordsPerSegment)
	assert.False(t, cfg.EnableExporter)
}
