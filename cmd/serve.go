package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/metrics"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored layers and indicator reports over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/layers", func(w http.ResponseWriter, req *http.Request) {
		layers, err := st.ListLayers(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, layers)
	})

	r.Get("/layers/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		col, err := st.LoadLayer(req.Context(), name)
		if err != nil {
			if eris.Is(err, store.ErrLayerNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		fc := geojson.FeatureCollection{}
		for _, f := range col.Features {
			fc.Features = append(fc.Features, &geojson.Feature{
				ID:         f.ID,
				Geometry:   f.Geom,
				Properties: f.Attrs,
			})
		}
		writeJSON(w, http.StatusOK, &fc)
	})

	r.Get("/reports/{family}", func(w http.ResponseWriter, req *http.Request) {
		calc := metrics.NewCalculator(st)
		ctx := req.Context()

		var rows any
		var err error
		switch chi.URLParam(req, "family") {
		case "residential":
			rows, err = calc.Residential(ctx)
		case "urbanfunc":
			rows, err = calc.UrbanFunc(ctx)
		case "disaster":
			rows, err = calc.Disaster(ctx)
		case "transit":
			rows, err = calc.Transit(ctx)
		case "landuse":
			rows, err = calc.LandUse(ctx)
		default:
			writeError(w, http.StatusNotFound, eris.New("unknown report family"))
			return
		}
		if err != nil {
			if eris.Is(err, store.ErrLayerNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
