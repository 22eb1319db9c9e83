package loader

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/model"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

// Options controls an ingestion run.
type Options struct {
	InputDir    string
	SRID        int
	Concurrency int
}

// Ingest reads every dataset named by the manifest from the input tree and
// saves the merged collections into the store. Datasets whose folder is
// absent are skipped with a warning so partial input trees still load.
func Ingest(ctx context.Context, st store.Store, m *Manifest, opts Options) error {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	var mu sync.Mutex
	loaded := make(map[string]*model.Collection, len(m.Datasets))

	for _, ds := range m.Datasets {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			col, err := readDataset(ds, opts)
			if err != nil {
				return err
			}
			if col == nil {
				return nil
			}
			mu.Lock()
			loaded[ds.Layer] = col
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Saves run serially so the SQLite backend sees one writer. The group
	// context is cancelled once Wait returns, so the saves use the caller's.
	for _, ds := range m.Datasets {
		col, ok := loaded[ds.Layer]
		if !ok {
			continue
		}
		if err := st.SaveLayer(ctx, col, ds.Folder); err != nil {
			return eris.Wrapf(err, "loader: save layer %s", ds.Layer)
		}
		zap.L().Info("loader: layer ingested",
			zap.String("layer", ds.Layer),
			zap.Int("features", col.Len()),
		)
	}

	return nil
}

// readDataset reads and merges every shapefile under the dataset folder.
// Returns nil, nil when the folder holds no shapefiles.
func readDataset(ds Dataset, opts Options) (*model.Collection, error) {
	dir := filepath.Join(opts.InputDir, ds.Folder)
	paths, err := FindShapefiles(dir)
	if err != nil {
		zap.L().Warn("loader: dataset folder not readable, skipping",
			zap.String("layer", ds.Layer),
			zap.String("dir", dir),
			zap.Error(err),
		)
		return nil, nil
	}
	if len(paths) == 0 {
		zap.L().Warn("loader: no shapefiles found, skipping",
			zap.String("layer", ds.Layer),
			zap.String("dir", dir),
		)
		return nil, nil
	}

	merged := model.NewCollection(ds.Layer, opts.SRID)
	for _, p := range paths {
		col, err := ReadShapefile(p, opts.SRID)
		if err != nil {
			return nil, err
		}
		if ds.Kind == "shelter" {
			mapped, ok := MapShelters(col)
			if !ok {
				continue
			}
			col = mapped
		}
		for _, f := range col.Features {
			merged.Append(f)
		}
	}

	if merged.Len() == 0 {
		return nil, nil
	}
	merged.Name = ds.Layer
	return merged, nil
}
