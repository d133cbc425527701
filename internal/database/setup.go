package database

import (
	"chatapp-client/internal/models"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DialectSqlite = "sqlite"
	DialectMysql  = "mysql"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(sugar *zap.SugaredLogger, db *sql.DB) error {
	var journalModeValue string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	sugar.Debugf("sqlite PRAGMA journal_mode: %s, synchronous: %s", journalModeValue, synchronousValueStr)

	return nil
}

// Setup opens the database picked by cfg.Backend and makes sure the
// documents table exists. It returns the dialect alongside the handle.
func Setup(sugar *zap.SugaredLogger, cfg *models.ConfigFile) (*sql.DB, string, error) {
	if cfg.Backend == DialectMysql {
		return OpenMysql(sugar, cfg)
	}

	path := cfg.SqlitePath
	if path == "" {
		path = "./database.db"
	}

	db, err := OpenSqlite(sugar, path)
	return db, DialectSqlite, err
}

func OpenSqlite(sugar *zap.SugaredLogger, path string) (*sql.DB, error) {
	sugar.Infof("Connecting to database sqlite at [%s]...", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// there can be sqlite busy errors if this is not set to 1
	db.SetMaxOpenConns(1)

	err = setPragmaValues(db)
	if err != nil {
		return db, err
	}

	err = readPragmaValues(sugar, db)
	if err != nil {
		return db, err
	}

	err = setupTables(db, DialectSqlite)
	if err != nil {
		return db, err
	}

	return db, nil
}

func OpenMysql(sugar *zap.SugaredLogger, cfg *models.ConfigFile) (*sql.DB, string, error) {
	sugar.Info("Connecting to database mysql/mariadb...")

	db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
	if err != nil {
		return db, DialectMysql, err
	}

	db.SetMaxOpenConns(10)

	err = setupTables(db, DialectMysql)
	if err != nil {
		return db, DialectMysql, err
	}

	return db, DialectMysql, nil
}

func setupTables(db *sql.DB, dialect string) error {
	dataType := "TEXT"
	if dialect == DialectMysql {
		dataType = "LONGTEXT"
	}

	_, err := db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS documents (
				path VARCHAR(255) PRIMARY KEY,
				parent VARCHAR(255) NOT NULL,
				doc_id VARCHAR(64) NOT NULL,
				data %s NOT NULL
			);
		`, dataType))
	if err != nil {
		return err
	}

	_, err = db.Exec("CREATE INDEX documents_parent ON documents (parent)")
	if err != nil && !isDuplicateIndex(err) {
		return err
	}

	return nil
}

func isDuplicateIndex(err error) bool {
	// sqlite: "index documents_parent already exists", mysql: error 1061
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "Duplicate key name")
}
