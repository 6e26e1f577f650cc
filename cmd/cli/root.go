package main

import (
	"fmt"

	"github.com/downfa11-org/logunit/pkg/config"
	"github.com/downfa11-org/logunit/pkg/datastore"
	"github.com/downfa11-org/logunit/pkg/disk"
	"github.com/downfa11-org/logunit/util"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logPath           string
	recordsPerSegment int64
	noVerify          bool
	logLevel          string
	memory            bool
}

// newRootCommand registers the operator commands under a shared set of log flags.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "logunit-cli",
		Short:         "Operate on a local log unit directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetLevel(util.ParseLogLevel(opts.logLevel))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logPath, "log-path", config.DefaultLogPath, "Directory holding the log and datastore")
	flags.Int64Var(&opts.recordsPerSegment, "records-per-segment", config.DefaultRecordsPerSegment, "Number of addresses per segment file")
	flags.BoolVar(&opts.noVerify, "no-verify", false, "Disable payload checksum verification")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log Level (debug, info, warn, error)")

	root.AddCommand(newShellCommand(opts))
	root.AddCommand(newInspectCommand(opts))
	root.AddCommand(newVerifyCommand(opts))
	root.AddCommand(newBenchCommand(opts))
	return root
}

func (o *rootOptions) config() *config.Config {
	cfg := &config.Config{
		LogPath:           o.logPath,
		NoVerify:          o.noVerify,
		RecordsPerSegment: o.recordsPerSegment,
		DataStore:         config.DataStorePebble,
	}
	if o.memory {
		cfg.DataStore = config.DataStoreMemory
	}
	cfg.Normalize()
	return cfg
}

// openStreamLog opens the engine over the configured directory. The returned
// func closes the engine and its datastore.
func (o *rootOptions) openStreamLog() (*disk.StreamLog, func(), error) {
	cfg := o.config()

	var store datastore.DataStore
	if cfg.DataStore == config.DataStoreMemory {
		store = datastore.NewInmem()
	} else {
		ps, err := datastore.OpenPebble(cfg.DataStoreDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open datastore: %w", err)
		}
		store = ps
	}

	ds, err := datastore.NewStreamLogDataStore(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	sl, err := disk.NewStreamLog(cfg, ds)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	closer := func() {
		if err := sl.Close(); err != nil {
			util.Error("failed to close stream log: %v", err)
		}
		if err := store.Close(); err != nil {
			util.Error("failed to close datastore: %v", err)
		}
	}
	return sl, closer, nil
}
