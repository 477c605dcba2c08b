package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "github.com/swaggo/files"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/imyousuf/routegen/internal/config"
)

func newDocsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Serve the generated API document with a Swagger UI",
		Long: `Serve the generated OpenAPI document over HTTP.

The document JSON is served at /openapi.json and an interactive Swagger UI
at /docs/. Run a generation first so the document exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Output.DocsPath == "" {
				return fmt.Errorf("output.docs_path is not configured")
			}
			if _, err := os.Stat(cfg.Output.DocsPath); err != nil {
				return fmt.Errorf("no API document at %s; run 'routegen' first", cfg.Output.DocsPath)
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				http.ServeFile(w, r, cfg.Output.DocsPath)
			})
			mux.Handle("/docs/", httpSwagger.Handler(
				httpSwagger.URL("/openapi.json"),
				httpSwagger.DeepLinking(true),
			))
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/docs/", http.StatusFound)
			})

			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				select {
				case <-sigCh:
				case <-ctx.Done():
				}
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", headerStyle.Render("Serving API docs"))
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("Document"), cfg.Output.DocsPath)
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("UI"), "http://"+addr+"/docs/")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8787", "listen address for the docs server")

	return cmd
}
