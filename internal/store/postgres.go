package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on Postgres, geometries as WKB bytea.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS layers (
	name          TEXT PRIMARY KEY,
	alias         TEXT,
	srid          INTEGER NOT NULL,
	feature_count INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS layer_features (
	id         BIGSERIAL PRIMARY KEY,
	layer_name TEXT NOT NULL REFERENCES layers(name) ON DELETE CASCADE,
	fid        TEXT,
	geom       BYTEA,
	attrs      JSONB
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_layer_features_layer ON layer_features(layer_name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveLayer replaces the stored layer of the same name.
func (s *PostgresStore) SaveLayer(ctx context.Context, c *model.Collection, alias string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save layer")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM layer_features WHERE layer_name = $1`, c.Name,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear layer %s", c.Name)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO layers (name, alias, srid, feature_count, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET alias = EXCLUDED.alias, srid = EXCLUDED.srid,
		   feature_count = EXCLUDED.feature_count, updated_at = EXCLUDED.updated_at`,
		c.Name, alias, c.SRID, c.Len(), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert layer %s", c.Name)
	}

	for _, f := range c.Features {
		geomWKB, attrsJSON, encErr := encodeFeature(f)
		if encErr != nil {
			return encErr
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO layer_features (layer_name, fid, geom, attrs) VALUES ($1, $2, $3, $4)`,
			c.Name, f.ID, geomWKB, attrsJSON,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert feature into %s", c.Name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit layer %s", c.Name)
	}
	return nil
}

func (s *PostgresStore) LoadLayer(ctx context.Context, name string) (*model.Collection, error) {
	var srid int
	err := s.pool.QueryRow(ctx,
		`SELECT srid FROM layers WHERE name = $1`, name,
	).Scan(&srid)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrLayerNotFound, "postgres: load layer %s", name)
		}
		return nil, eris.Wrapf(err, "postgres: load layer %s", name)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT fid, geom, attrs FROM layer_features WHERE layer_name = $1 ORDER BY id`, name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query features of %s", name)
	}
	defer rows.Close()

	c := model.NewCollection(name, srid)
	for rows.Next() {
		var (
			fid       *string
			geomWKB   []byte
			attrsJSON []byte
		)
		if err := rows.Scan(&fid, &geomWKB, &attrsJSON); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan feature of %s", name)
		}
		id := ""
		if fid != nil {
			id = *fid
		}
		f, decErr := decodeFeature(id, geomWKB, attrsJSON)
		if decErr != nil {
			return nil, decErr
		}
		c.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate features of %s", name)
	}
	return c, nil
}

func (s *PostgresStore) DeleteLayer(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM layers WHERE name = $1`, name)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete layer %s", name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrLayerNotFound, "postgres: delete layer %s", name)
	}
	return nil
}

func (s *PostgresStore) ListLayers(ctx context.Context) ([]LayerInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, alias, srid, feature_count, updated_at FROM layers ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list layers")
	}
	defer rows.Close()

	var infos []LayerInfo
	for rows.Next() {
		var (
			info  LayerInfo
			alias *string
		)
		if err := rows.Scan(&info.Name, &alias, &info.SRID, &info.FeatureCount, &info.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan layer info")
		}
		if alias != nil {
			info.Alias = *alias
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Kind, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "postgres: finish run %s", runID)
}
