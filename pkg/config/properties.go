package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/downfa11-org/logunit/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogPath           = "logunit-data"
	DefaultRecordsPerSegment = 10000
	DefaultExporterPort      = 9100
	DefaultSyncIntervalMS    = 100
	DefaultCompactIntervalMS = 60000

	DataStorePebble = "pebble"
	DataStoreMemory = "memory"
)

// Config represents the log unit configuration
type Config struct {
	LogPath  string        `yaml:"log_path" json:"log.path"`
	LogLevel util.LogLevel `yaml:"log_level" json:"log_level"`

	// Segment files
	NoVerify          bool  `yaml:"no_verify" json:"no.verify"`
	RecordsPerSegment int64 `yaml:"records_per_segment" json:"records.per.segment"`
	ReadCacheSize     int64 `yaml:"read_cache_size" json:"read.cache.size"`

	// Background maintenance
	SyncIntervalMS    int `yaml:"sync_interval_ms" json:"sync.interval.ms"`
	CompactIntervalMS int `yaml:"compact_interval_ms" json:"compact.interval.ms"`

	// Scalar persistence: "pebble" or "memory"
	DataStore string `yaml:"datastore" json:"datastore"`

	EnableExporter bool `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int  `yaml:"exporter_port" json:"exporter.port"`
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(flag.CommandLine, os.Args[1:])
}

// LoadConfigFrom resolves the configuration in order: flag defaults, config file,
// explicitly set flags, LOGUNIT_* environment variables.
func LoadConfigFrom(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	configPath := fs.String("config", "", "Path to YAML/JSON config file")
	logPathStr := fs.String("log-path", DefaultLogPath, "Directory holding the log and datastore")
	logLevelStr := fs.String("log-level", "info", "Log Level (debug, info, warn, error)")
	noVerifyStr := fs.String("no-verify", "false", "Disable payload checksum verification")
	rpsStr := fs.String("records-per-segment", "10000", "Number of addresses per segment file")
	cacheStr := fs.String("read-cache-size", "0", "Read cache size in bytes (0=disabled)")
	exporterStr := fs.String("exporter", "true", "Enable Prometheus exporter")
	exporterPortStr := fs.String("exporter-port", "9100", "Exporter port")
	syncStr := fs.String("sync-interval-ms", "100", "Interval between forced syncs (ms)")
	compactStr := fs.String("compact-interval-ms", "60000", "Interval between compactions (ms)")
	dsStr := fs.String("datastore", DataStorePebble, "Scalar datastore (pebble, memory)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	applyFlags(cfg, nil, logPathStr, logLevelStr, noVerifyStr, rpsStr, cacheStr,
		exporterStr, exporterPortStr, syncStr, compactStr, dsStr)

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(*configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}

		applyFlags(cfg, explicit, logPathStr, logLevelStr, noVerifyStr, rpsStr, cacheStr,
			exporterStr, exporterPortStr, syncStr, compactStr, dsStr)
	}

	cfg.applyEnvOverrides()
	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// applyFlags copies flag values into cfg. With a non-nil explicit set only flags
// given on the command line are applied, so they win over the config file.
func applyFlags(cfg *Config, explicit map[string]bool, logPathStr, logLevelStr, noVerifyStr,
	rpsStr, cacheStr, exporterStr, exporterPortStr, syncStr, compactStr, dsStr *string) {

	set := func(name string) bool {
		return explicit == nil || explicit[name]
	}

	if set("log-path") {
		cfg.LogPath = *logPathStr
	}
	if set("log-level") {
		cfg.LogLevel = util.ParseLogLevel(*logLevelStr)
	}
	if set("no-verify") {
		cfg.NoVerify = util.ParseBool(*noVerifyStr, cfg.NoVerify)
	}
	if set("records-per-segment") {
		cfg.RecordsPerSegment = util.ParseInt64(*rpsStr, cfg.RecordsPerSegment)
	}
	if set("read-cache-size") {
		cfg.ReadCacheSize = util.ParseInt64(*cacheStr, cfg.ReadCacheSize)
	}
	if set("exporter") {
		cfg.EnableExporter = util.ParseBool(*exporterStr, cfg.EnableExporter)
	}
	if set("exporter-port") {
		cfg.ExporterPort = util.ParseInt(*exporterPortStr, cfg.ExporterPort)
	}
	if set("sync-interval-ms") {
		cfg.SyncIntervalMS = util.ParseInt(*syncStr, cfg.SyncIntervalMS)
	}
	if set("compact-interval-ms") {
		cfg.CompactIntervalMS = util.ParseInt(*compactStr, cfg.CompactIntervalMS)
	}
	if set("datastore") {
		cfg.DataStore = *dsStr
	}
}

// SegmentDir is the directory holding <segment>.log files.
func (cfg *Config) SegmentDir() string {
	return filepath.Join(cfg.LogPath, "log")
}

// DataStoreDir is the pebble directory used for the persisted scalars.
func (cfg *Config) DataStoreDir() string {
	return filepath.Join(cfg.LogPath, "datastore")
}

// Verify reports whether payload checksums are validated on read and recovery.
func (cfg *Config) Verify() bool {
	return !cfg.NoVerify
}
