package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"pricing-calculator/api"
	"pricing-calculator/internal/config"
	"pricing-calculator/internal/logging"
)

var serveAddr string

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve <catalog>",
	Short: "Serve the pricing API for a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine, err := newEngine(c, registry)
	if err != nil {
		return err
	}
	handler, err := api.NewHandler(c, engine)
	if err != nil {
		return err
	}
	server := api.NewServer(handler, api.Options{
		Version:  Version,
		Logger:   logging.Logger,
		Registry: registry,
	})

	addr := serveAddr
	if addr == "" {
		addr = config.Get().Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s pricing on %s\n", c.Vendor, addr)
	if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
