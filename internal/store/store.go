// Package store handles SQLite persistence of named defect datasets.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/qc7/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrNotFound is returned when a named dataset does not exist.
	ErrNotFound = errors.New("dataset not found")
	// ErrExists is returned when saving over an existing dataset without replace.
	ErrExists = errors.New("dataset already exists")
)

// Store wraps SQLite access for dataset data.
type Store struct {
	db *sql.DB
}

// DatasetInfo describes a stored dataset.
type DatasetInfo struct {
	ID              string
	Name            string
	Columns         model.FieldSet
	Records         int
	DefectCount     int
	InspectionCount int
	FirstDate       string
	LastDate        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			columns INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			dataset_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			date TEXT NOT NULL,
			product TEXT NOT NULL,
			defect_item TEXT NOT NULL,
			defect_count INTEGER NOT NULL,
			inspection_count INTEGER NOT NULL,
			cause_category TEXT NOT NULL,
			process TEXT NOT NULL,
			remarks TEXT NOT NULL,
			PRIMARY KEY (dataset_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_dataset_date ON records(dataset_id, date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDataset stores ds under name. An existing dataset is overwritten only when replace is set.
func (s *Store) SaveDataset(ctx context.Context, name string, ds model.Dataset, replace bool) (id string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("dataset name is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	existing, err := lookupID(ctx, tx, name)
	switch {
	case err == nil && !replace:
		return "", fmt.Errorf("%w: %s", ErrExists, name)
	case err == nil:
		id = existing
		if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE dataset_id = ?`, id); err != nil {
			return "", err
		}
		if _, err = tx.ExecContext(ctx, `UPDATE datasets SET columns = ?, updated_at = ? WHERE id = ?`, int64(ds.Columns), now, id); err != nil {
			return "", err
		}
	case errors.Is(err, ErrNotFound):
		id = uuid.NewString()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO datasets (id, name, columns, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, name, int64(ds.Columns), now, now); err != nil {
			return "", err
		}
	default:
		return "", err
	}

	if err = insertRecords(ctx, tx, id, 0, ds.Records); err != nil {
		return "", err
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// AppendRecords adds records to a dataset, creating it with every column when missing.
func (s *Store) AppendRecords(ctx context.Context, name string, recs []model.DefectRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	id, err := lookupID(ctx, tx, name)
	if errors.Is(err, ErrNotFound) {
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO datasets (id, name, columns, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, name, int64(model.AllFields), now, now)
	} else if err == nil {
		_, err = tx.ExecContext(ctx, `UPDATE datasets SET updated_at = ? WHERE id = ?`, now, id)
	}
	if err != nil {
		return err
	}

	var next int
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM records WHERE dataset_id = ?`, id).Scan(&next); err != nil {
		return err
	}
	if err = insertRecords(ctx, tx, id, next, recs); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadDataset returns every record of the named dataset in insertion order.
func (s *Store) LoadDataset(ctx context.Context, name string) (model.Dataset, error) {
	return s.LoadDatasetRange(ctx, name, nil, nil)
}

// LoadDatasetRange returns the records of the named dataset dated within [since, until].
func (s *Store) LoadDatasetRange(ctx context.Context, name string, since, until *time.Time) (model.Dataset, error) {
	var id string
	var columns int64
	err := s.db.QueryRowContext(ctx, `SELECT id, columns FROM datasets WHERE name = ?`, name).Scan(&id, &columns)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return model.Dataset{}, err
	}

	clauses := []string{"dataset_id = ?"}
	args := []any{id}
	if since != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, since.Format(model.DateLayout))
	}
	if until != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, until.Format(model.DateLayout))
	}
	query := fmt.Sprintf(`SELECT date, product, defect_item, defect_count, inspection_count, cause_category, process, remarks
		FROM records
		WHERE %s
		ORDER BY seq ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Dataset{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	ds := model.Dataset{Columns: model.FieldSet(columns)}
	for rows.Next() {
		var rec model.DefectRecord
		var date string
		if err := rows.Scan(&date, &rec.Product, &rec.DefectItem, &rec.DefectCount, &rec.InspectionCount,
			&rec.CauseCategory, &rec.Process, &rec.Remarks); err != nil {
			return model.Dataset{}, err
		}
		if date != "" {
			parsed, err := time.Parse(model.DateLayout, date)
			if err != nil {
				return model.Dataset{}, err
			}
			rec.Date = parsed
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

// ListDatasets returns every stored dataset with record totals, ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	query := `SELECT d.id, d.name, d.columns, d.created_at, d.updated_at,
		COUNT(r.seq), COALESCE(SUM(r.defect_count), 0), COALESCE(SUM(r.inspection_count), 0),
		COALESCE(MIN(r.date), ''), COALESCE(MAX(r.date), '')
	FROM datasets d
	LEFT JOIN records r ON r.dataset_id = d.id
	GROUP BY d.id
	ORDER BY d.name ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		var columns int64
		var createdAt, updatedAt string
		if err := rows.Scan(&info.ID, &info.Name, &columns, &createdAt, &updatedAt,
			&info.Records, &info.DefectCount, &info.InspectionCount, &info.FirstDate, &info.LastDate); err != nil {
			return nil, err
		}
		info.Columns = model.FieldSet(columns)
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDataset removes a dataset and its records.
func (s *Store) DeleteDataset(ctx context.Context, name string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	id, err := lookupID(ctx, tx, name)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM records WHERE dataset_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func lookupID(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return id, err
}

func insertRecords(ctx context.Context, tx *sql.Tx, id string, start int, recs []model.DefectRecord) error {
	if len(recs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (dataset_id, seq, date, product, defect_item, defect_count, inspection_count, cause_category, process, remarks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, rec := range recs {
		date := ""
		if !rec.Date.IsZero() {
			date = rec.DateKey()
		}
		if _, err := stmt.ExecContext(ctx, id, start+i, date, rec.Product, rec.DefectItem, rec.DefectCount,
			rec.InspectionCount, rec.CauseCategory, rec.Process, rec.Remarks); err != nil {
			return err
		}
	}
	return nil
}
