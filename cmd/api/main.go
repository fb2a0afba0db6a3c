package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/apguard/apguard/internal/config"
	"github.com/apguard/apguard/internal/database"
	"github.com/apguard/apguard/internal/evaluation"
	"github.com/apguard/apguard/internal/export"
	apguardHttp "github.com/apguard/apguard/internal/http"
	evaluationHandler "github.com/apguard/apguard/internal/http/evaluation"
	invoiceHandler "github.com/apguard/apguard/internal/http/invoice"
	poHandler "github.com/apguard/apguard/internal/http/purchaseorder"
	workflowHandler "github.com/apguard/apguard/internal/http/workflow"
	"github.com/apguard/apguard/internal/importer"
	"github.com/apguard/apguard/internal/invoice"
	invoiceStore "github.com/apguard/apguard/internal/invoice/store"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/po"
	poStore "github.com/apguard/apguard/internal/po/store"
	vendorStore "github.com/apguard/apguard/internal/vendors/store"
	"github.com/apguard/apguard/internal/workflow"
	workflowStore "github.com/apguard/apguard/internal/workflow/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	matchCfg := matching.DefaultConfig()
	matchCfg.DateWindowDays = cfg.Matching.DateWindowDays
	matchCfg.BackdateGraceDays = cfg.Matching.BackdateGraceDays
	matchCfg.AmountTolerancePct = cfg.Matching.AmountTolerancePct

	var (
		invoiceRepo  = invoiceStore.New(db)
		poRepo       = poStore.New(db)
		vendorRepo   = vendorStore.New(db)
		workflowRepo = workflowStore.New(db)
	)

	evalService, err := evaluation.NewService(invoiceRepo, poRepo, vendorRepo, matchCfg)
	if err != nil {
		slog.Error("failed to build evaluation service", "error", err)
		os.Exit(1)
	}

	chains, err := workflow.NewChainSet(workflow.DefaultChains())
	if err != nil {
		slog.Error("failed to load approval chains", "error", err)
		os.Exit(1)
	}

	var (
		invoiceService = invoice.NewService(invoiceRepo)
		poService      = po.NewService(poRepo)
		importService  = importer.NewService()
		exporter       = export.NewExporter(invoiceService, cfg.ERP.BaseURL, cfg.ERP.Token)
	)

	engine := workflow.NewEngine(workflowRepo, chains,
		workflow.MultiPublisher{workflow.LogPublisher{}, exporter}, nil)

	var (
		invoiceH    = invoiceHandler.NewHandler(invoiceService)
		poH         = poHandler.NewHandler(importService, poService)
		evaluationH = evaluationHandler.NewHandler(evalService)
		workflowH   = workflowHandler.NewHandler(engine, evalService, invoiceService)
	)

	router := apguardHttp.New(invoiceH, poH, evaluationH, workflowH, cfg.Auth.JWTSecret)

	go sweepTimeouts(engine, cfg.Workflow.SweepInterval)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// sweepTimeouts periodically applies timeout policies to overdue workflows.
func sweepTimeouts(engine *workflow.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for now := range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)

		n, err := engine.SweepTimeouts(ctx, now)
		if err != nil {
			slog.Error("timeout sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("timeout sweep applied", "workflows", n)
		}

		cancel()
	}
}
