package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/redtable/combat-tracker/internal/config"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/storage/memory"
	pgstorage "github.com/redtable/combat-tracker/internal/storage/postgres"
	sqlitestorage "github.com/redtable/combat-tracker/internal/storage/sqlite"
	wsstorage "github.com/redtable/combat-tracker/internal/storage/websocket"
)

// newBackend creates the configured storage backend. It does not call Init.
func newBackend(storageCfg config.StorageConfig, encounter string, logger *slog.Logger) (storage.Backend, error) {
	switch strings.ToLower(storageCfg.Type) {
	case "postgres":
		logger.Info("Postgres storage backend selected", "host", storageCfg.DB.Host, "database", storageCfg.DB.Database)
		return pgstorage.New(pgstorage.Dependencies{
			Config:    storageCfg.DB,
			Logger:    logger,
			Encounter: encounter,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, encounter, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "path", storageCfg.SQLite.Path, "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(storageCfg.Stream.URL)
		logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:       wsURL,
			Secret:    storageCfg.Stream.Secret,
			Encounter: encounter,
		}, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory, encounter), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
