// Package main - Entry point for the pricing API server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"pricing-calculator/api"
	"pricing-calculator/core/catalog"
	"pricing-calculator/core/pricing"
	"pricing-calculator/internal/config"
	"pricing-calculator/internal/logging"
)

const version = "1.0.0"

func main() {
	catalogPath := flag.String("catalog", "", "Path to the pricing catalog (json, yaml or hcl)")
	addr := flag.String("addr", "", "Server address (default from config)")
	configPath := flag.String("config", config.DefaultPath(), "Path to the config file")
	flag.Parse()

	if *catalogPath == "" {
		fmt.Fprintln(os.Stderr, "usage: server -catalog <file> [-addr :8080] [-config path]")
		os.Exit(2)
	}

	if err := run(*catalogPath, *addr, *configPath); err != nil {
		log.Fatal(err)
	}
}

func run(catalogPath, addr, configPath string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()

	c, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return err
	}
	for _, warning := range catalog.Warnings(c) {
		logging.Warn("catalog warning", zap.String("catalog", catalogPath), zap.String("warning", warning))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	currency := c.Currency
	if currency == "" {
		currency = cfg.Pricing.DefaultCurrency
	}
	engine, err := pricing.NewEngine(pricing.Options{
		CacheSize:        cfg.Pricing.FormulaCacheSize,
		StrictMinorUnits: cfg.Pricing.StrictMinorUnits,
		Currency:         currency,
		Logger:           logging.Logger,
		Metrics:          pricing.NewMetrics(registry),
	})
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(c, engine)
	if err != nil {
		return err
	}
	server := api.NewServer(handler, api.Options{Version: version, Logger: logging.Logger, Registry: registry})

	if addr == "" {
		addr = cfg.Server.Addr
	}

	fmt.Printf("Pricing server v%s\n", version)
	fmt.Printf("   Catalog: %s (%s)\n", c.Vendor, catalogPath)
	fmt.Printf("   API:     http://localhost%s\n", addr)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
