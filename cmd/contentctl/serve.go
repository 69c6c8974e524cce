package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	content "github.com/goliatone/go-content"
	contentmcp "github.com/goliatone/go-content/mcp"
	"github.com/goliatone/go-content/preview"
	"github.com/goliatone/go-content/schema/openapi"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		stdio bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools and the live preview socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			editor, done, err := a.openEditor(ctx)
			if err != nil {
				return err
			}
			defer done()

			mcpServer := contentmcp.NewServer(editor)
			if stdio {
				a.log.Info("serving mcp on stdio")
				return server.ServeStdio(mcpServer)
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return a.serveHTTP(ctx, addr, editor, mcpServer)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr from config)")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	return cmd
}

func (a *app) serveHTTP(ctx context.Context, addr string, editor *content.Editor, mcpServer *server.MCPServer) error {
	hub := preview.NewHub(editor, preview.WithLogger(zapLogger{log: a.log}))
	defer hub.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/document", hub)
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp")))
	mux.HandleFunc("/openapi.json", a.serveSchema(editor))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) serveSchema(editor *content.Editor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := openapi.NewGenerator().Generate(editor.Registry())
		if err != nil {
			a.log.Error("generate schema", zap.Error(err))
			http.Error(w, "schema unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}
}
