package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tracekit/carbontrace/internal/config"
	"github.com/tracekit/carbontrace/internal/engine"
	"github.com/tracekit/carbontrace/internal/maps"
	"github.com/tracekit/carbontrace/internal/resolve"
	"github.com/tracekit/carbontrace/internal/service"
	"github.com/tracekit/carbontrace/internal/storage"
)

// buildEngine wires the maps capability into the calculation engine. Without
// an API key the engine still handles direct distances; address and airport
// resolution will fail per-entry.
func buildEngine() (*engine.Engine, func(), error) {
	mapsConfig := config.LoadMapsConfig()

	var capability service.MapsCapability
	cleanup := func() {}

	if mapsConfig.APIKey == "" {
		slog.Warn("No maps API key configured; only direct distances will resolve",
			"hint", "set maps.api_key or GOOGLE_MAPS_API_KEY")
	} else {
		client, err := maps.NewClient(mapsConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create maps client: %w", err)
		}
		capability = client
		cleanup = client.Close
	}

	e := engine.NewWithConfig(
		resolve.NewLocator(capability),
		resolve.NewDisambiguator(capability),
		engine.Config{Concurrency: viper.GetInt("engine.concurrency")},
	)
	return e, cleanup, nil
}

func defaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "carbontrace", "carbontrace.db"), nil
}

// openStorage opens and migrates the calculation history database.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		var err error
		dbPath, err = defaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}
