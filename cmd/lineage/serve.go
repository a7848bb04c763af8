package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/mcptools"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (the default, for editor integration) or
streamable HTTP. When metrics.addr is set, Prometheus metrics are served
on that address at /metrics.`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if transport == "" {
				transport = a.cfg.Server.Transport
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.Metrics.Addr != "" {
				a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				go serveMetrics(ctx, a, a.cfg.Metrics.Addr)
			}

			svc := mcptools.NewKnowledgeService(a.engine, mcptools.Defaults{
				ImpactDepth: a.cfg.Impact.Depth,
				Dedupe:      a.cfg.Impact.Dedupe,
				SkipVisited: a.cfg.Impact.SkipVisited,
				ListLimit:   a.cfg.Versions.Limit,
			}, a.logger)

			switch transport {
			case "stdio":
				a.logger.Info("serving mcp over stdio", "backend", a.cfg.Storage.Backend)
				return mcptools.RunMCPServerStdio(ctx, svc)
			case "http":
				return mcptools.RunMCPServer(ctx, svc, addr)
			}
			return fmt.Errorf("--transport must be stdio or http, got %q", transport)
		}),
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (default: server.transport)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for http (default: server.addr)")
	return cmd
}

func serveMetrics(ctx context.Context, a *app, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	a.logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server stopped", "error", err)
	}
}
