// File: internal/database/database.go
package database

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iyunix/go-converse/internal/domain"
)

// Open connects to sqlite (default) or postgres. TranslateError is enabled so
// unique violations surface as gorm.ErrDuplicatedKey on both drivers.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver != "postgres" {
		// sqlite allows a single writer; serialize through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return db, nil
}

// Migrate creates or updates the chat and message tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Chat{}, &domain.Message{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		// Expression index backing the weighted title search.
		stmt := `CREATE INDEX IF NOT EXISTS idx_chats_title_fts ON chats USING GIN (to_tsvector('simple', title))`
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create title search index: %w", err)
		}
		stmt = `CREATE INDEX IF NOT EXISTS idx_messages_content_fts ON messages USING GIN (to_tsvector('simple', content))`
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create content search index: %w", err)
		}
	}
	return nil
}

// OpenInMemory opens a migrated private in-memory sqlite database. name
// isolates databases from each other within one process.
func OpenInMemory(name string) (*gorm.DB, error) {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	db, err := Open("sqlite", "file:"+safe+"?mode=memory&cache=shared")
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
