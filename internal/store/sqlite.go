package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// SQLiteStore implements Store on a single database file, the project's
// GeoPackage analog: geometries as WKB blobs, attributes as JSON.
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS layers (
	name          TEXT PRIMARY KEY,
	alias         TEXT,
	srid          INTEGER NOT NULL,
	feature_count INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS layer_features (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	layer_name TEXT NOT NULL REFERENCES layers(name) ON DELETE CASCADE,
	fid        TEXT,
	geom       BLOB,
	attrs      TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_layer_features_layer ON layer_features(layer_name);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveLayer replaces the stored layer of the same name.
func (s *SQLiteStore) SaveLayer(ctx context.Context, c *model.Collection, alias string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save layer")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM layer_features WHERE layer_name = ?`, c.Name,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear layer %s", c.Name)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO layers (name, alias, srid, feature_count, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET alias = excluded.alias, srid = excluded.srid,
		   feature_count = excluded.feature_count, updated_at = excluded.updated_at`,
		c.Name, alias, c.SRID, c.Len(), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert layer %s", c.Name)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO layer_features (layer_name, fid, geom, attrs) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare feature insert")
	}
	defer insert.Close()

	for _, f := range c.Features {
		geomWKB, attrsJSON, encErr := encodeFeature(f)
		if encErr != nil {
			return encErr
		}
		if _, err := insert.ExecContext(ctx, c.Name, f.ID, geomWKB, attrsJSON); err != nil {
			return eris.Wrapf(err, "sqlite: insert feature into %s", c.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "sqlite: commit layer %s", c.Name)
	}
	return nil
}

func (s *SQLiteStore) LoadLayer(ctx context.Context, name string) (*model.Collection, error) {
	var srid int
	err := s.db.QueryRowContext(ctx,
		`SELECT srid FROM layers WHERE name = ?`, name,
	).Scan(&srid)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrLayerNotFound, "sqlite: load layer %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load layer %s", name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fid, geom, attrs FROM layer_features WHERE layer_name = ? ORDER BY id`, name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query features of %s", name)
	}
	defer rows.Close()

	c := model.NewCollection(name, srid)
	for rows.Next() {
		var (
			fid       sql.NullString
			geomWKB   []byte
			attrsJSON sql.NullString
		)
		if err := rows.Scan(&fid, &geomWKB, &attrsJSON); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan feature of %s", name)
		}
		f, decErr := decodeFeature(fid.String, geomWKB, []byte(attrsJSON.String))
		if decErr != nil {
			return nil, decErr
		}
		c.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate features of %s", name)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteLayer(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layers WHERE name = ?`, name)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete layer %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrLayerNotFound, "sqlite: delete layer %s", name)
	}
	return nil
}

func (s *SQLiteStore) ListLayers(ctx context.Context) ([]LayerInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, alias, srid, feature_count, updated_at FROM layers ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list layers")
	}
	defer rows.Close()

	var infos []LayerInfo
	for rows.Next() {
		var (
			info  LayerInfo
			alias sql.NullString
		)
		if err := rows.Scan(&info.Name, &alias, &info.SRID, &info.FeatureCount, &info.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan layer info")
		}
		info.Alias = alias.String
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Kind, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: finish run %s", runID)
}

// encodeFeature serializes a feature's geometry to WKB and attributes to JSON.
func encodeFeature(f *model.Feature) (geomWKB []byte, attrsJSON []byte, err error) {
	if f.Geom != nil {
		geomWKB, err = wkb.Marshal(f.Geom, wkb.NDR)
		if err != nil {
			return nil, nil, eris.Wrap(err, "store: encode geometry")
		}
	}
	if len(f.Attrs) > 0 {
		attrsJSON, err = json.Marshal(f.Attrs)
		if err != nil {
			return nil, nil, eris.Wrap(err, "store: encode attributes")
		}
	}
	return geomWKB, attrsJSON, nil
}

// decodeFeature reverses encodeFeature.
func decodeFeature(fid string, geomWKB, attrsJSON []byte) (*model.Feature, error) {
	f := &model.Feature{ID: fid, Attrs: make(map[string]any)}
	if len(geomWKB) > 0 {
		g, err := wkb.Unmarshal(geomWKB)
		if err != nil {
			return nil, eris.Wrap(err, "store: decode geometry")
		}
		f.Geom = g
	}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &f.Attrs); err != nil {
			return nil, eris.Wrap(err, "store: decode attributes")
		}
	}
	return f, nil
}
