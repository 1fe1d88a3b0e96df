package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/fieldops/gearscan/pkg/catalog"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS equipment (
  id               INTEGER PRIMARY KEY,
  label_normalized TEXT NOT NULL UNIQUE,
  label_raw        TEXT,
  code             TEXT,
  name             TEXT,
  category         TEXT,
  description      TEXT,
  location         TEXT,
  status           TEXT,
  first_seen_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_equipment_category ON equipment(category);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// ImportItems upserts catalog rows in one transaction. Existing rows are only
// rewritten when their metadata actually changed, so last_seen_at stays
// meaningful.
func (d *DB) ImportItems(ctx context.Context, items []Item) (ImportStats, error) {
	var stats ImportStats

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return stats, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing := make(map[string]catalog.Record)
	rows, err := tx.QueryContext(ctx, "SELECT label_normalized, code, name, category, description, location, status FROM equipment")
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var key string
		var r catalog.Record
		var code, name, cat, desc, loc, status sql.NullString
		if err = rows.Scan(&key, &code, &name, &cat, &desc, &loc, &status); err != nil {
			rows.Close()
			return stats, err
		}
		r.Code, r.Name, r.Category = code.String, name.String, cat.String
		r.Description, r.Location, r.Status = desc.String, loc.String, status.String
		existing[key] = r
	}
	if err = rows.Close(); err != nil {
		return stats, err
	}

	for _, it := range items {
		key := it.LabelNormalized
		if key == "" {
			key = catalog.Normalize(it.LabelRaw)
		}
		if key == "" {
			continue
		}

		prev, existed := existing[key]
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO equipment(label_normalized, label_raw, code, name, category, description, location, status, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`,
				key, nullIfEmpty(it.LabelRaw), nullIfEmpty(it.Record.Code), nullIfEmpty(it.Record.Name), nullIfEmpty(it.Record.Category), nullIfEmpty(it.Record.Description), nullIfEmpty(it.Record.Location), nullIfEmpty(it.Record.Status))
			if err != nil {
				return stats, err
			}
			stats.Added++
		case prev != it.Record:
			_, err = tx.ExecContext(ctx, `UPDATE equipment SET label_raw = ?, code = ?, name = ?, category = ?, description = ?, location = ?, status = ?, last_seen_at = CURRENT_TIMESTAMP WHERE label_normalized = ?`,
				nullIfEmpty(it.LabelRaw), nullIfEmpty(it.Record.Code), nullIfEmpty(it.Record.Name), nullIfEmpty(it.Record.Category), nullIfEmpty(it.Record.Description), nullIfEmpty(it.Record.Location), nullIfEmpty(it.Record.Status), key)
			if err != nil {
				return stats, err
			}
			stats.Updated++
		default:
			stats.Unchanged++
		}
		existing[key] = it.Record
	}

	if err = tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

// ListOptions controls selection when listing equipment.
type ListOptions struct {
	Category string
	Search   string
}

// ListItems returns stored rows matching the filters, ordered by label.
func (d *DB) ListItems(ctx context.Context, opts ListOptions) ([]Item, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Category != "" {
		where += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.Search != "" {
		where += " AND (label_normalized LIKE ? OR name LIKE ?)"
		pattern := fmt.Sprintf("%%%s%%", opts.Search)
		args = append(args, pattern, pattern)
	}

	q := "SELECT label_normalized, label_raw, code, name, category, description, location, status FROM equipment " + where + " ORDER BY label_normalized"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByLabel fetches a single row by (case-insensitively normalized) label.
func (d *DB) GetByLabel(ctx context.Context, label string) (Item, bool, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT label_normalized, label_raw, code, name, category, description, location, status FROM equipment WHERE label_normalized = ?", catalog.Normalize(label))
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

// LoadCatalog materializes all stored rows into an in-memory catalog.
func (d *DB) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	items, err := d.ListItems(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	c := catalog.New()
	for _, it := range items {
		c.Add(it.LabelNormalized, it.Record)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var raw, code, name, cat, desc, loc, status sql.NullString
	if err := row.Scan(&it.LabelNormalized, &raw, &code, &name, &cat, &desc, &loc, &status); err != nil {
		return Item{}, err
	}
	it.LabelRaw = raw.String
	it.Record = catalog.Record{
		Code:        code.String,
		Name:        name.String,
		Category:    cat.String,
		Description: desc.String,
		Location:    loc.String,
		Status:      status.String,
	}
	return it, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
