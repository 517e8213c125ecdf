package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/bonus-cli/internal/db"
	"github.com/sells-group/bonus-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_record": `INSERT INTO bonus_records (agent_id, name, email, sales, quality, absenteeism, total_bono, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
	"get_record":    `SELECT agent_id, name, email, sales, quality, absenteeism, total_bono::text, recorded_at FROM bonus_records WHERE agent_id = $1 AND recorded_at = $2`,
	"list_records":  `SELECT agent_id, name, email, sales, quality, absenteeism, total_bono::text, recorded_at FROM bonus_records ORDER BY recorded_at, agent_id`,
	"update_record": `UPDATE bonus_records SET sales = $1, quality = $2, absenteeism = $3, total_bono = $4::numeric WHERE agent_id = $5 AND recorded_at = $6`,
	"delete_record": `DELETE FROM bonus_records WHERE agent_id = $1 AND recorded_at = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bonus_records (
	agent_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	sales       DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality     DOUBLE PRECISION NOT NULL DEFAULT 0,
	absenteeism DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_bono  NUMERIC(18,2) NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (agent_id, recorded_at)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec model.BonusRecord) error {
	_, err := s.pool.Exec(ctx,
		preparedStatements["insert_record"],
		rec.AgentID, rec.Name, rec.Email,
		rec.Metrics.Sales, rec.Metrics.Quality, rec.Metrics.Absenteeism,
		rec.TotalBono.String(), model.NormalizeTimestamp(rec.RecordedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrDuplicate, "postgres: insert %s", rec.Key())
		}
		return eris.Wrapf(err, "postgres: insert %s", rec.Key())
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.BonusRecord, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_records"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.BonusRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate records")
	}
	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, key model.RecordKey) (*model.BonusRecord, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_record"], key.AgentID, key.Timestamp)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: get %s", key)
		}
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateMetrics(ctx context.Context, key model.RecordKey, m model.Metrics, total decimal.Decimal) error {
	ct, err := s.pool.Exec(ctx,
		preparedStatements["update_record"],
		m.Sales, m.Quality, m.Absenteeism, total.String(),
		key.AgentID, key.Timestamp,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s", key)
	}
	if ct.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update %s", key)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key model.RecordKey) error {
	ct, err := s.pool.Exec(ctx, preparedStatements["delete_record"], key.AgentID, key.Timestamp)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete %s", key)
	}
	if ct.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: delete %s", key)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.BonusRecord, error) {
	var rec model.BonusRecord
	var totalText string

	err := row.Scan(
		&rec.AgentID, &rec.Name, &rec.Email,
		&rec.Metrics.Sales, &rec.Metrics.Quality, &rec.Metrics.Absenteeism,
		&totalText, &rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(totalText)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: parse total %q", totalText)
	}
	rec.TotalBono = total
	rec.RecordedAt = model.NormalizeTimestamp(rec.RecordedAt)
	return &rec, nil
}
