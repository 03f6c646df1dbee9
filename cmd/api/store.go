package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskboard/configs"
	"taskboard/internal/docstore"
	"taskboard/internal/repository"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"
)

// openStore connects the backend named by DOCSTORE_DRIVER.
func openStore(ctx context.Context, cfg configs.Config, migrate, drop bool) (docstore.Store, error) {
	switch cfg.DocStoreDriver {
	case "postgres":
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		logger.SystemLogger.Info("Database Connected", zap.String("db", cfg.DBName))

		// Jika ingin menghapus tabel:
		if drop {
			if err := repository.DeleteAllTable(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		// Buat tabel jika belum ada:
		if migrate || drop {
			if err := repository.CreateTableIfNotExists(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return docstore.NewPostgresStore(db), nil

	case "mongo":
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.SystemLogger.Info("Mongo Connected", zap.String("db", cfg.MongoDB))
		return docstore.NewMongoStore(client, cfg.MongoDB), nil

	case "memory":
		logger.SystemLogger.Warn("Using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown DOCSTORE_DRIVER %q", cfg.DocStoreDriver)
}
