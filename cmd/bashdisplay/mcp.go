package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deixis/bashdisplay/internal/cell"
	bdmcp "github.com/deixis/bashdisplay/internal/mcp"
	"github.com/deixis/bashdisplay/internal/metrics"
	"github.com/go-chi/chi/v5"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long:  `Serves the bash_with_display, bash_inspect and bash_info tools over stdio, or over streamable HTTP with --http.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ok, _ := cmd.Flags().GetBool("instructions"); ok {
			fmt.Print(bdmcp.Instructions)
			return nil
		}
		httpAddr, _ := cmd.Flags().GetString("http")

		w, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		server := bdmcp.NewServer(bdmcp.Deps{
			Runner:  w.Runner(),
			Images:  cell.NewImageLoader(w.Dir),
			Store:   w.Store,
			History: w.History,
			Metrics: m,
			Logger:  w.Logger,
		})

		if httpAddr != "" {
			return serveHTTP(ctx, server, m, httpAddr)
		}
		return server.Run(ctx, &mcpsdk.StdioTransport{})
	},
}

func init() {
	mcpCmd.Flags().Bool("instructions", false, "print model instructions and exit")
	mcpCmd.Flags().String("http", "", "start HTTP server on address (e.g. :9090)")
	rootCmd.AddCommand(mcpCmd)
}

func newRouter(server *mcpsdk.Server, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Handle("/mcp", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))
	r.Handle("/metrics", m.Handler())
	return r
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, m *metrics.Metrics, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: newRouter(server, m),
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
