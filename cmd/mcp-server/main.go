// cmd/mcp-server/main.go — Model Context Protocol server for goquad
//
// Exposes the adaptive trapezoidal solvers as MCP tools for AI agent
// frameworks, over stdio (default) or streamable HTTP.
//
// Usage:
//
//	go run ./cmd/mcp-server
//	go run ./cmd/mcp-server -http :8081
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"k8s.io/klog/v2"

	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/mcpserver"
)

var version = "dev"

func main() {
	klog.InitFlags(nil)
	httpAddr := flag.String("http", "", "Serve streamable HTTP on this address instead of stdio")
	configFile := flag.String("config", "", "Optional config file")
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(config.New(), *configFile)
	if err != nil {
		klog.ErrorS(err, "load config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcpserver.New(cfg, version)

	if *httpAddr == "" {
		klog.InfoS("goquad MCP server on stdio")
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			klog.ErrorS(err, "mcp server stopped")
			os.Exit(1)
		}
		return
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	klog.InfoS("goquad MCP server listening", "addr", *httpAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.ErrorS(err, "http server stopped")
		os.Exit(1)
	}
}
