package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/machshop/kitting/internal/config"
	"github.com/machshop/kitting/pkg/application/services/allocation"
	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/application/services/explosion"
	"github.com/machshop/kitting/pkg/application/services/kitting"
	"github.com/machshop/kitting/pkg/application/services/ledger"
	"github.com/machshop/kitting/pkg/application/services/shortage"
	"github.com/machshop/kitting/pkg/domain/repositories"
	"github.com/machshop/kitting/pkg/infrastructure/collaborators/inventoryhttp"
	"github.com/machshop/kitting/pkg/infrastructure/events"
	"github.com/machshop/kitting/pkg/infrastructure/repositories/csv"
	"github.com/machshop/kitting/pkg/infrastructure/repositories/memory"
	"github.com/machshop/kitting/pkg/infrastructure/repositories/sqlite"
	"github.com/machshop/kitting/pkg/interfaces/rest"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustConfig()
	log := setupLogger(cfg.Env)

	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	kits := sqlite.NewKitStore(storage)
	locations := sqlite.NewLocationStore(storage)
	reservations := sqlite.NewReservationStore(storage)
	shortages := sqlite.NewShortageStore(storage)

	// Reference data comes from the part-master and work-order
	// collaborators; the in-memory repositories stand in until those feeds
	// are wired.
	workOrders := memory.NewWorkOrderRepository()
	boms := memory.NewBOMRepository()
	parts := memory.NewPartRepository()

	var inventory repositories.InventoryGateway
	if cfg.InventoryURL != "" {
		inventory = inventoryhttp.NewClient(cfg.InventoryURL, cfg.InventoryTimeout)
	} else {
		log.Warn("no inventory_url configured, using in-memory inventory")
		inventory = memory.NewInventoryGateway()
	}

	if cfg.DataDir != "" {
		if err := loadReferenceData(cfg.DataDir, workOrders, boms, parts, locations, inventory); err != nil {
			log.Error("failed to load reference data", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("reference data loaded", slog.String("dir", cfg.DataDir))
	}

	store := events.NewInMemoryEventStore(log)

	policy := availability.DefaultPolicy()
	policy.CountInTransit = cfg.CountInTransit

	service := kitting.NewService(kitting.Deps{
		Kits:       kits,
		WorkOrders: workOrders,
		Parts:      parts,
		Locations:  locations,
		Shortages:  shortages,
		Resolver:   explosion.NewResolver(workOrders, boms, parts),
		Checker:    availability.NewChecker(inventory, reservations, policy, log),
		Detector:   shortage.NewDetector(),
		Allocator:  allocation.NewAllocator(locations, allocation.Config{}, log),
		Ledger:     ledger.NewLedger(reservations, inventory, locations, store, log),
		Events:     store,
		Log:        log,
	})

	router := rest.NewRouter(log, rest.RouterDeps{
		Service:        service,
		Shortages:      shortages,
		Locations:      locations,
		Events:         store,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadReferenceData fills the reference repositories from CSV exports. The
// stock file only applies when the engine runs on the in-memory gateway; a
// real inventory service is its own source of truth.
func loadReferenceData(
	dir string,
	workOrders *memory.WorkOrderRepository,
	boms *memory.BOMRepository,
	parts *memory.PartRepository,
	locations repositories.LocationRepository,
	inventory repositories.InventoryGateway,
) error {
	loader := csv.NewLoader()
	ctx := context.Background()

	partList, err := loader.LoadParts(filepath.Join(dir, "parts.csv"))
	if err != nil {
		return err
	}
	if err := parts.LoadParts(partList); err != nil {
		return err
	}

	bomLines, err := loader.LoadBOM(filepath.Join(dir, "bom.csv"))
	if err != nil {
		return err
	}
	if err := boms.LoadBOMLines(bomLines); err != nil {
		return err
	}

	orders, err := loader.LoadWorkOrders(filepath.Join(dir, "workorders.csv"))
	if err != nil {
		return err
	}
	if err := workOrders.LoadWorkOrders(orders); err != nil {
		return err
	}

	locs, err := loader.LoadLocations(filepath.Join(dir, "locations.csv"))
	if err != nil {
		return err
	}
	for _, loc := range locs {
		if err := locations.SaveLocation(ctx, loc); err != nil {
			return err
		}
	}

	if gateway, ok := inventory.(*memory.InventoryGateway); ok {
		stock, err := loader.LoadStock(filepath.Join(dir, "stock.csv"))
		if err != nil {
			return err
		}
		if err := gateway.LoadStock(stock); err != nil {
			return err
		}
	}

	return nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal, envDev:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
