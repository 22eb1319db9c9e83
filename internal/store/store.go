// Package store persists named feature collections, the geospatial dataset
// store the generators and metric calculators read and write. Two backends
// implement the same interface: a file-backed SQLite store (the default) and
// a Postgres store for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
)

// ErrLayerNotFound is returned when a requested layer does not exist.
var ErrLayerNotFound = eris.New("store: layer not found")

// LayerInfo summarizes one stored layer.
type LayerInfo struct {
	Name         string    `json:"name"`
	Alias        string    `json:"alias,omitempty"`
	SRID         int       `json:"srid"`
	FeatureCount int       `json:"feature_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
)

// Run records one execution of the generate or metrics pipeline.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store is the persistence interface for layers and pipeline runs.
type Store interface {
	// Layers
	SaveLayer(ctx context.Context, c *model.Collection, alias string) error
	LoadLayer(ctx context.Context, name string) (*model.Collection, error)
	DeleteLayer(ctx context.Context, name string) error
	ListLayers(ctx context.Context) ([]LayerInfo, error)

	// Runs
	CreateRun(ctx context.Context, kind string) (*Run, error)
	FinishRun(ctx context.Context, runID string, status RunStatus) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
