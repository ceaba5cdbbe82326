package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/assets"
	"github.com/lanes-app/lanes/core"
)

const (
	EnginePostgres = "postgres"
	EngineSqlite   = "sqlite"
)

// DB is the application database: gorm for the repositories, sqlx for the reports.
// It runs transactions for the services.
type DB struct {
	*gorm.DB
	engine string
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the database configured in conf.Database.
func Open(conf *core.Config, logger core.Logger) (*DB, error) {
	var dialector gorm.Dialector
	switch conf.Database.Engine {
	case EnginePostgres:
		dialector = postgres.Open(dsn(conf.Database.Name, false, conf))
	case EngineSqlite:
		dialector = sqlite.Open(conf.Database.Name)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, conf.Debug && !conf.TestMode),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "getting sql.DB")
	}
	if conf.Database.Engine == EngineSqlite {
		// every connection to an in-memory database opens a new empty one
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(conf.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(conf.Database.MaxIdleConns)
	}
	return &DB{DB: gdb, engine: conf.Database.Engine}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StatusCheck returns nil if it can successfully talk to the database.
func (db *DB) StatusCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Sqlx returns a sqlx handle sharing the connection pool of db.
func (db *DB) Sqlx() (*sqlx.DB, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, err
	}
	driverName := "pgx"
	if db.engine == EngineSqlite {
		driverName = "sqlite3"
	}
	return sqlx.NewDb(sqlDB, driverName), nil
}

type txKey struct{}

// WithinTransaction runs fn in a transaction carried by the ctx it receives.
// When ctx already carries one, fn joins it.
func (db *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or the database.
func (db *DB) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.DB.WithContext(ctx)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		// identifiers and passwords cannot be bound as parameters here
		q := fmt.Sprintf("CREATE USER %q CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %q", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app role, as the admin role, then the app database, as the app role.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	admin, err := sql.Open("postgres", dsn("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()
	if err = ping(admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(admin, conf); err != nil {
		return err
	}

	app, err := sql.Open("postgres", dsn("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = app.Close() }()
	return createDB(app, conf)
}

// RunMigrations runs a goose command against the embedded migrations.
func RunMigrations(ctx context.Context, db *DB, command string, args ...string) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "getting sql.DB")
	}
	goose.SetBaseFS(assets.Migrations)
	defer goose.SetBaseFS(nil)
	if err = goose.SetDialect(db.engine); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err = goose.RunContext(ctx, command, sqlDB, assets.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %s", command)
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *DB) error {
	return RunMigrations(ctx, db, "up")
}
