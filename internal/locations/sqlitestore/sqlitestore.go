// Package sqlitestore persists locations in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/locations"
)

// Backend implements locations.Backend on SQLite.
type Backend struct {
	db *sql.DB
}

// Open connects to the database at path and initializes the schema. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Backend, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := &Backend{db: db}
	if err := b.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return b, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		map_id     INTEGER PRIMARY KEY,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	);

	CREATE TABLE IF NOT EXISTS locations (
		map_id INTEGER NOT NULL,
		seq    INTEGER NOT NULL,
		kind   TEXT NOT NULL,
		x      REAL NOT NULL,
		y      REAL NOT NULL,
		z      REAL NOT NULL,
		note   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (map_id, seq),
		FOREIGN KEY (map_id) REFERENCES maps(map_id) ON DELETE CASCADE
	);
	`
	_, err := b.db.ExecContext(ctx, schema)
	return err
}

// Load returns the map's locations in insertion order, or
// locations.ErrUnknownMap when the map was never saved.
func (b *Backend) Load(ctx context.Context, mapID uint32) ([]locations.Location, error) {
	var known int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maps WHERE map_id = ?`, mapID).Scan(&known)
	if err != nil {
		return nil, fmt.Errorf("failed to query map: %w", err)
	}
	if known == 0 {
		return nil, locations.ErrUnknownMap
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT kind, x, y, z, note
		FROM locations
		WHERE map_id = ?
		ORDER BY seq
	`, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var out []locations.Location
	for rows.Next() {
		var (
			loc  locations.Location
			kind string
			pos  geom.Vec3
		)
		if err := rows.Scan(&kind, &pos.X, &pos.Y, &pos.Z, &loc.Note); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		loc.Kind = locations.Kind(kind)
		loc.Position = pos
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Save replaces the map's locations in one transaction.
func (b *Backend) Save(ctx context.Context, mapID uint32, locs []locations.Location) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO maps (map_id) VALUES (?)
		ON CONFLICT(map_id) DO UPDATE SET updated_at = unixepoch()
	`, mapID); err != nil {
		return fmt.Errorf("failed to upsert map: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE map_id = ?`, mapID); err != nil {
		return fmt.Errorf("failed to clear locations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locations (map_id, seq, kind, x, y, z, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, loc := range locs {
		p := loc.Position
		if _, err := stmt.ExecContext(ctx, mapID, i, string(loc.Kind), p.X, p.Y, p.Z, loc.Note); err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

var _ locations.Backend = (*Backend)(nil)
