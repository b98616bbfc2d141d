package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/ext/unicode"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLOptions describe a relational store connection.
type SQLOptions struct {
	// Driver is "sqlite" or "postgres".
	Driver       string
	DSN          string
	MaxOpenConns int
	// LogLevel is the application log level; gorm follows it.
	LogLevel logger.Level
}

// OpenSQL opens a gorm connection pool for the given driver and verifies it
// with a ping.
func OpenSQL(ctx context.Context, opts SQLOptions) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		sqliteDB  *sql.DB
	)
	switch opts.Driver {
	case "sqlite":
		// Unicode aware lower() and LIKE so search folds case beyond ASCII.
		conn, err := driver.Open(opts.DSN, unicode.Register)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		sqliteDB = conn
		dialector = gormlite.OpenDB(conn)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, errors.Errorf("unsupported sql driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormWriter{log: logger.Named("gorm"), level: writerLevel(opts.LogLevel)}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		if sqliteDB != nil {
			_ = sqliteDB.Close()
		}
		return nil, errors.WithStack(err)
	}

	internalDB, err := db.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.Driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		internalDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=wal; PRAGMA busy_timeout=5000").Error; err != nil {
			_ = internalDB.Close()
			return nil, errors.WithStack(err)
		}
	} else if opts.MaxOpenConns > 0 {
		internalDB.SetMaxOpenConns(opts.MaxOpenConns)
		internalDB.SetMaxIdleConns(opts.MaxOpenConns)
	}

	if err := internalDB.PingContext(ctx); err != nil {
		_ = internalDB.Close()
		return nil, errors.Wrapf(err, "ping %s", opts.Driver)
	}

	return db, nil
}

func gormLogLevel(l logger.Level) gormlogger.LogLevel {
	switch l {
	case logger.LevelDebug:
		return gormlogger.Info
	case logger.LevelInfo, logger.LevelWarn:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}

// gormWriter emits gorm's lines at a level the application sink lets
// through for the configured LOG_LEVEL.
type gormWriter struct {
	log   *logger.Component
	level logger.Level
}

func (w gormWriter) Printf(format string, v ...interface{}) {
	w.log.Logf(w.level, format, v...)
}

func writerLevel(l logger.Level) logger.Level {
	switch l {
	case logger.LevelDebug:
		return logger.LevelDebug
	case logger.LevelInfo, logger.LevelWarn:
		return logger.LevelWarn
	default:
		return logger.LevelError
	}
}
