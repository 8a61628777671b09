package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	Path string

	// MigrationsPath is the directory holding migration files. Empty skips
	// migrations (the schema must already exist).
	MigrationsPath string

	Logger *logrus.Logger
}

// SQLiteStore persists items as JSON rows in a single table. It is the
// local-development and single-writer backend; conditional semantics come
// from transactions over the one write connection.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens the database, runs migrations when configured, and
// returns the store.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if cfg.MigrationsPath != "" {
		if err := s.migrate(cfg.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.WithField("path", cfg.Path).Info("Item store ready")
	return s, nil
}

// migrate applies pending migrations from the given directory.
func (s *SQLiteStore) migrate(migrationsPath string) error {
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}

	source, err := (&file.File{}).Open("file://" + abs)
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("file", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	s.logger.WithField("migrations", abs).Debug("Migrations applied")
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, table string, key Key) (Item, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT attrs FROM items WHERE tbl = ? AND key_value = ?`, table, key.Value).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "Get", Table: table, Key: key, Err: err}
	}
	return decodeItem(raw, table, key)
}

func (s *SQLiteStore) Put(ctx context.Context, table string, key Key, item Item) error {
	raw, err := encodeItem(item)
	if err != nil {
		return &StoreError{Op: "Put", Table: table, Key: key, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (tbl, key_name, key_value, attrs) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tbl, key_value) DO UPDATE SET attrs = excluded.attrs`,
		table, key.Name, key.Value, raw)
	if err != nil {
		return &StoreError{Op: "Put", Table: table, Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) PutIfAbsent(ctx context.Context, table string, key Key, item Item) error {
	raw, err := encodeItem(item)
	if err != nil {
		return &StoreError{Op: "PutIfAbsent", Table: table, Key: key, Err: err}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (tbl, key_name, key_value, attrs) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tbl, key_value) DO NOTHING`,
		table, key.Name, key.Value, raw)
	if err != nil {
		return &StoreError{Op: "PutIfAbsent", Table: table, Key: key, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "PutIfAbsent", Table: table, Key: key, Err: err}
	}
	if affected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, table string, key Key, attrs map[string]interface{}) (Item, error) {
	return s.modify(ctx, "Update", table, key, true, func(item Item) error {
		for k, v := range attrs {
			item[k] = v
		}
		return nil
	})
}

func (s *SQLiteStore) Query(ctx context.Context, table, index, attribute string, value interface{}) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key_name, key_value, attrs FROM items WHERE tbl = ? AND json_extract(attrs, ?) = ?`,
		table, "$."+attribute, value)
	if err != nil {
		return nil, &StoreError{Op: "Query", Table: table, Err: err}
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var keyName, keyValue, raw string
		if err := rows.Scan(&keyName, &keyValue, &raw); err != nil {
			return nil, &StoreError{Op: "Query", Table: table, Err: err}
		}
		item, err := decodeItem(raw, table, Key{Name: keyName, Value: keyValue})
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "Query", Table: table, Err: err}
	}
	return out, nil
}

func (s *SQLiteStore) AddToSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return s.modify(ctx, "AddToSet", table, key, false, func(item Item) error {
		item[attribute] = toStringSet(item[attribute]).Add(value)
		return nil
	})
}

func (s *SQLiteStore) RemoveFromSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return s.modify(ctx, "RemoveFromSet", table, key, false, func(item Item) error {
		item[attribute] = toStringSet(item[attribute]).Remove(value)
		return nil
	})
}

func (s *SQLiteStore) MoveBetweenSets(ctx context.Context, table string, key Key, source, target, value string) (Item, error) {
	return s.modify(ctx, "MoveBetweenSets", table, key, false, func(item Item) error {
		item[source] = toStringSet(item[source]).Remove(value)
		item[target] = toStringSet(item[target]).Add(value)
		return nil
	})
}

func (s *SQLiteStore) AppendToList(ctx context.Context, table string, key Key, attribute string, value interface{}) (Item, error) {
	return s.modify(ctx, "AppendToList", table, key, false, func(item Item) error {
		item[attribute] = append(toList(item[attribute]), value)
		return nil
	})
}

func (s *SQLiteStore) MoveBetweenLists(ctx context.Context, table string, key Key, source string, index int, target string, value interface{}) (Item, error) {
	return s.modify(ctx, "MoveBetweenLists", table, key, false, func(item Item) error {
		src := toList(item[source])
		if index >= 0 && index < len(src) {
			item[source] = append(src[:index:index], src[index+1:]...)
		}
		item[target] = append(toList(item[target]), value)
		return nil
	})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// modify runs a read-modify-write cycle in one transaction. With upsert the
// item is created from its key when absent (Update semantics); without,
// absence fails the operation's key-exists condition.
func (s *SQLiteStore) modify(ctx context.Context, op, table string, key Key, upsert bool, fn func(Item) error) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	}
	defer tx.Rollback()

	var raw string
	var item Item
	err = tx.QueryRowContext(ctx,
		`SELECT attrs FROM items WHERE tbl = ? AND key_value = ?`, table, key.Value).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		if !upsert {
			return nil, ErrConditionFailed
		}
		item = Item{key.Name: key.Value}
	case err != nil:
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	default:
		if item, err = decodeItem(raw, table, key); err != nil {
			return nil, err
		}
	}

	if err := fn(item); err != nil {
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	}

	encoded, err := encodeItem(item)
	if err != nil {
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (tbl, key_name, key_value, attrs) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tbl, key_value) DO UPDATE SET attrs = excluded.attrs`,
		table, key.Name, key.Value, encoded)
	if err != nil {
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: op, Table: table, Key: key, Err: err}
	}
	return item, nil
}

func encodeItem(item Item) (string, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("encode item: %w", err)
	}
	return string(raw), nil
}

func decodeItem(raw, table string, key Key) (Item, error) {
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, &StoreError{Op: "decode", Table: table, Key: key, Err: err}
	}
	return item, nil
}
