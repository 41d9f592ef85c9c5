package database

import (
	"fmt"
	"log/slog"
)

const (
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	switch databaseType {
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	// Schema creation is idempotent; required for in-memory SQLite
	slog.Debug("initializing database schema", "type", databaseType)
	if _, err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	if !database.DoesDatabaseExist() {
		_ = database.Close()
		return nil, fmt.Errorf("%s database is not reachable", databaseType)
	}

	return database, nil
}
