// HTTP server that generates-and-serves thumbnails on demand
package kuvaserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/mime"
	"github.com/function61/gokit/stopper"
	"github.com/function61/kuvasto/pkg/kuvatypes"
	"github.com/function61/kuvasto/pkg/thumbcache"
	"github.com/function61/kuvasto/pkg/thumbnailer"
	"github.com/function61/kuvasto/pkg/thumboption"
	"github.com/robfig/cron/v3"
)

func runServer(scf *ServerConfigFile, rootLogger *log.Logger, stop *stopper.Stopper) error {
	logl := logex.Levels(rootLogger)

	thumber, cache, release, err := BuildStack(scf, rootLogger)
	if err != nil {
		return err
	}
	defer release()

	metrics := newMetricsController()

	mux := http.NewServeMux()
	mux.HandleFunc("/thumb", thumbHandler(thumber, cache, metrics))
	mux.Handle("/metrics", metrics.MetricsHTTPHandler())

	srv := &http.Server{
		Addr:    scf.ListenAddr,
		Handler: metrics.WrapHTTPServer(mux),
	}

	if scf.SweepSchedule != "" {
		sweeper := cron.New()

		if _, err := sweeper.AddFunc(scf.SweepSchedule, func() {
			swept, err := cache.SweepStale(context.Background())
			if err != nil {
				logl.Error.Printf("sweep: %v", err)
				return
			}

			metrics.sweptRecords.Add(float64(swept))

			if swept > 0 {
				logl.Info.Printf("sweep: dropped %d stale record(s)", swept)
			}
		}); err != nil {
			return err
		}

		sweeper.Start()
		defer sweeper.Stop()
	}

	go func() {
		defer stop.Done()

		<-stop.Signal

		if err := srv.Shutdown(context.Background()); err != nil {
			logl.Error.Printf("Shutdown: %v", err)
		}
	}()

	logl.Info.Printf("listening on %s", scf.ListenAddr)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

// GET /thumb?src=photos/cat.jpg&size=240x240&opts=crop,sharpen,quality=95
func thumbHandler(thumber *thumbnailer.Thumbnailer, cache *thumbcache.Store, metrics *metricsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourcePath := r.URL.Query().Get("src")
		if sourcePath == "" {
			http.Error(w, "src not specified", http.StatusBadRequest)
			return
		}

		size := r.URL.Query().Get("size")
		if size == "" {
			http.Error(w, "size not specified", http.StatusBadRequest)
			return
		}

		tokens := []string{size}
		if optTokens := r.URL.Query().Get("opts"); optTokens != "" {
			tokens = append(tokens, strings.Split(optTokens, ",")...)
		}

		opts, err := thumboption.Parse(tokens)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		hit, _ := cache.Lookup(r.Context(), sourcePath, opts.Canonical())
		if hit != nil {
			metrics.cacheHits.Inc()
		} else {
			metrics.generated.Inc()
		}

		thumb, err := thumber.Generate(r.Context(), sourcePath, opts)
		if err != nil {
			if hit == nil {
				metrics.generateErrors.Inc()
			}

			switch {
			case kuvatypes.IsSyntaxClass(err):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case kuvatypes.IsSourceClass(err):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		derivative, err := thumber.Storage().Open(r.Context(), thumb.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer derivative.Close()

		w.Header().Set("Content-Type", mime.TypeByExtension(filepath.Ext(thumb.Path), mime.OctetStream))

		_, _ = io.Copy(w, derivative)
	}
}
