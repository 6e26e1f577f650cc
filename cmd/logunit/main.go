package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/downfa11-org/logunit/pkg/config"
	"github.com/downfa11-org/logunit/pkg/datastore"
	"github.com/downfa11-org/logunit/pkg/disk"
	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/util"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	defer util.Sync()

	fmt.Printf("🚀 Starting log unit at %s\n", cfg.LogPath)
	fmt.Printf("🧾 Records per segment: %d | 🔒 Verify: %v | 📊 Exporter: %v\n",
		cfg.RecordsPerSegment, cfg.Verify(), cfg.EnableExporter)

	// Initialization
	store, err := openDataStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open datastore: %v", err)
	}
	ds, err := datastore.NewStreamLogDataStore(store)
	if err != nil {
		log.Fatalf("❌ Failed to load datastore: %v", err)
	}

	sl, err := disk.NewStreamLog(cfg, ds)
	if err != nil {
		log.Fatalf("❌ Failed to open stream log: %v", err)
	}

	var srv *http.Server
	if cfg.EnableExporter {
		srv = metrics.StartMetricsServer(cfg.ExporterPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runEvery(ctx, time.Duration(cfg.SyncIntervalMS)*time.Millisecond, func() {
			if err := sl.Sync(true); err != nil {
				util.Error("periodic sync failed: %v", err)
			}
		})
	}()
	go func() {
		defer wg.Done()
		runEvery(ctx, time.Duration(cfg.CompactIntervalMS)*time.Millisecond, func() {
			if err := sl.Compact(); err != nil {
				util.Error("periodic compaction failed: %v", err)
			}
		})
	}()

	util.Info("log unit ready, trim mark %d, tails %+v", sl.GetTrimMark(), sl.GetTails())
	<-ctx.Done()
	util.Info("shutting down log unit")
	wg.Wait()

	if err := sl.Sync(true); err != nil {
		util.Error("final sync failed: %v", err)
	}
	if err := sl.Close(); err != nil {
		util.Error("failed to close stream log: %v", err)
	}
	if err := store.Close(); err != nil {
		util.Error("failed to close datastore: %v", err)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			util.Error("failed to stop metrics server: %v", err)
		}
	}
}

func openDataStore(cfg *config.Config) (datastore.DataStore, error) {
	if cfg.DataStore == config.DataStoreMemory {
		util.Warn("using in-memory datastore, trim mark and tail segment are lost on restart")
		return datastore.NewInmem(), nil
	}
	return datastore.OpenPebble(cfg.DataStoreDir())
}

// runEvery calls fn on every tick until ctx is done. A non-positive interval disables the loop.
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
