package config

import (
	"os"
	"strings"

	"github.com/downfa11-org/logunit/util"
)

func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.LogPath) == "" {
		cfg.LogPath = DefaultLogPath
	}
	if cfg.RecordsPerSegment <= 0 {
		util.Warn("Invalid RecordsPerSegment (%d), defaulting to %d", cfg.RecordsPerSegment, DefaultRecordsPerSegment)
		cfg.RecordsPerSegment = DefaultRecordsPerSegment
	}
	if cfg.ReadCacheSize < 0 {
		cfg.ReadCacheSize = 0
	}

	if cfg.SyncIntervalMS <= 0 {
		cfg.SyncIntervalMS = DefaultSyncIntervalMS
	}
	if cfg.CompactIntervalMS <= 0 {
		cfg.CompactIntervalMS = DefaultCompactIntervalMS
	}

	cfg.DataStore = strings.ToLower(strings.TrimSpace(cfg.DataStore))
	switch cfg.DataStore {
	case DataStorePebble, DataStoreMemory:
	default:
		util.Warn("Invalid datastore '%s', defaulting to '%s'", cfg.DataStore, DataStorePebble)
		cfg.DataStore = DataStorePebble
	}

	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = DefaultExporterPort
	}
}

func (cfg *Config) applyEnvOverrides() {
	overrideEnvString(&cfg.LogPath, "LOGUNIT_LOG_PATH")
	if v := os.Getenv("LOGUNIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = util.ParseLogLevel(v)
	}
	overrideEnvBool(&cfg.NoVerify, "LOGUNIT_NO_VERIFY")
	overrideEnvInt64(&cfg.RecordsPerSegment, "LOGUNIT_RECORDS_PER_SEGMENT")
	overrideEnvInt64(&cfg.ReadCacheSize, "LOGUNIT_READ_CACHE_SIZE")
	overrideEnvInt(&cfg.SyncIntervalMS, "LOGUNIT_SYNC_INTERVAL_MS")
	overrideEnvInt(&cfg.CompactIntervalMS, "LOGUNIT_COMPACT_INTERVAL_MS")
	overrideEnvString(&cfg.DataStore, "LOGUNIT_DATASTORE")
	overrideEnvBool(&cfg.EnableExporter, "LOGUNIT_EXPORTER")
	overrideEnvInt(&cfg.ExporterPort, "LOGUNIT_EXPORTER_PORT")
}

func overrideEnvInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt(v, *target)
	}
}

func overrideEnvInt64(target *int64, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt64(v, *target)
	}
}

func overrideEnvBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseBool(v, *target)
	}
}

func overrideEnvString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
