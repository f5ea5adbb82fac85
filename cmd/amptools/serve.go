package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"

	amptools "github.com/goliatone/go-amptools"
	"github.com/goliatone/go-amptools/pkg/loader"
)

func cmdServe() *cobra.Command {
	var (
		addr      string
		extension string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates over HTTP",
		Long: `Serve maps request paths to templates ("/blog/post" renders
"blog/post.html") and renders the AMP variant when the request carries the
configured AMP query parameter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			env, logger, err := setupEnvironment()
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           newHandler(env, logger, extension),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info().Str("addr", addr).Msg("Serving templates...")
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("Stopping server...")
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return server.Shutdown(stopCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&extension, "extension", ".html", "Template extension appended to request paths")

	return cmd
}

func newHandler(env *amptools.Environment, logger zerolog.Logger, extension string) http.Handler {
	pages := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := templateForPath(r.URL.Path, extension)
		data := map[string]any{
			"path":          r.URL.Path,
			"canonical_url": r.URL.Path,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := env.RenderTemplate(r.Context(), name, data, w); err != nil {
			if errors.Is(err, loader.ErrTemplateNotFound) {
				http.NotFound(w, r)
				return
			}
			hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("Failed to render template")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	accessHandler := hlog.AccessHandler(
		func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("url", r.URL.Path).
				Int("status", status).
				Int("response_size_bytes", size).
				Str("duration", duration.String()).
				Msg("Handled request")
		},
	)

	return hlog.NewHandler(logger)(accessHandler(env.Middleware()(pages)))
}

// templateForPath maps "/" to "index<ext>" and "/a/b" to "a/b<ext>".
func templateForPath(urlPath, extension string) string {
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if clean == "" {
		clean = "index"
	}
	if strings.HasSuffix(urlPath, "/") && clean != "index" {
		clean += "/index"
	}
	if extension != "" && !strings.HasSuffix(clean, extension) {
		clean += extension
	}
	return clean
}
