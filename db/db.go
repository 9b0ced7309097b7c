package db

import (
	"context"
	"fmt"

	"campus-delivery/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Pool *pgxpool.Pool

// SQLite is set by InitSQLite when the sqlite store driver is selected.
var SQLite *gorm.DB

func Init(cfg config.DBConfig) error {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
	var err error
	Pool, err = pgxpool.New(context.Background(), connStr)
	return err
}

func InitSQLite(path string) error {
	var err error
	SQLite, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	return err
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
	if SQLite != nil {
		if sqlDB, err := SQLite.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
