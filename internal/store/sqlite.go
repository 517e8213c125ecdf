package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bonus-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bonus_records (
	agent_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	sales       REAL NOT NULL DEFAULT 0,
	quality     REAL NOT NULL DEFAULT 0,
	absenteeism REAL NOT NULL DEFAULT 0,
	total_bono  TEXT NOT NULL DEFAULT '0',
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (agent_id, recorded_at)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.BonusRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bonus_records (agent_id, name, email, sales, quality, absenteeism, total_bono, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AgentID, rec.Name, rec.Email,
		rec.Metrics.Sales, rec.Metrics.Quality, rec.Metrics.Absenteeism,
		rec.TotalBono.String(), model.NormalizeTimestamp(rec.RecordedAt).Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return eris.Wrapf(ErrDuplicate, "sqlite: insert %s", rec.Key())
		}
		return eris.Wrapf(err, "sqlite: insert %s", rec.Key())
	}
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.BonusRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, name, email, sales, quality, absenteeism, total_bono, recorded_at FROM bonus_records ORDER BY recorded_at, agent_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.BonusRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate records")
	}
	return records, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key model.RecordKey) (*model.BonusRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT agent_id, name, email, sales, quality, absenteeism, total_bono, recorded_at FROM bonus_records WHERE agent_id = ? AND recorded_at = ?`,
		key.AgentID, key.Timestamp.Format(time.RFC3339),
	)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: get %s", key)
		}
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateMetrics(ctx context.Context, key model.RecordKey, m model.Metrics, total decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bonus_records SET sales = ?, quality = ?, absenteeism = ?, total_bono = ? WHERE agent_id = ? AND recorded_at = ?`,
		m.Sales, m.Quality, m.Absenteeism, total.String(),
		key.AgentID, key.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s", key)
	}
	return checkRowsAffected(res, key)
}

func (s *SQLiteStore) Delete(ctx context.Context, key model.RecordKey) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bonus_records WHERE agent_id = ? AND recorded_at = ?`,
		key.AgentID, key.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete %s", key)
	}
	return checkRowsAffected(res, key)
}

func checkRowsAffected(res sql.Result, key model.RecordKey) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s", key)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row scannable) (*model.BonusRecord, error) {
	var rec model.BonusRecord
	var totalText, recordedAt string

	err := row.Scan(
		&rec.AgentID, &rec.Name, &rec.Email,
		&rec.Metrics.Sales, &rec.Metrics.Quality, &rec.Metrics.Absenteeism,
		&totalText, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(totalText)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse total %q", totalText)
	}
	rec.TotalBono = total

	ts, err := model.ParseTimestamp(recordedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse timestamp %q", recordedAt)
	}
	rec.RecordedAt = ts
	return &rec, nil
}
