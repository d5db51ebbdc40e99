// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/db"
	"github.com/satyam-tomar/vending-machine-api/internal/adapters/memorystore"
	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
	"github.com/satyam-tomar/vending-machine-api/internal/pkg/config"
	"github.com/satyam-tomar/vending-machine-api/internal/pkg/logger"
)

// Fixture is the planogram file format: the machine's slot layout and the
// initial stock for each slot.
type Fixture struct {
	Slots []FixtureSlot `json:"slots"`
}

// FixtureSlot is one slot definition in the fixture
type FixtureSlot struct {
	Code     string            `json:"code"`
	Capacity int               `json:"capacity"`
	Items    []ports.ItemEntry `json:"items"`
}

func main() {
	var (
		fixtureFile = flag.String("fixture", "./fixtures/planogram.json", "JSON planogram fixture")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun      = flag.Bool("dry-run", false, "Parse and validate the fixture without writing")
	)
	flag.Parse()

	slogger := logger.SetupLogger(*logLevel, "json")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		slogger.Error("failed to load fixture",
			slog.String("file", *fixtureFile),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("fixture loaded",
		slog.String("file", *fixtureFile),
		slog.Int("slots", len(fixture.Slots)))

	if *dryRun {
		fmt.Printf("[DRY RUN] fixture is valid: %d slots\n", len(fixture.Slots))
		return
	}

	ctx := context.Background()

	var store ports.InventoryStore
	switch cfg.Storage.Driver {
	case "postgres":
		database, err := db.NewDatabase(ctx, &db.Config{
			Host:               cfg.Database.Host,
			Port:               cfg.Database.Port,
			User:               cfg.Database.User,
			Password:           cfg.Database.Password,
			Database:           cfg.Database.Name,
			SSLMode:            cfg.Database.SSLMode,
			MaxConnections:     5,
			MinConnections:     1,
			MaxConnLifetime:    cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
			ConnectTimeout:     cfg.Database.ConnectTimeout,
			EnableQueryLogging: cfg.Database.EnableQueryLogging,
		}, slogger)
		if err != nil {
			slogger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.Close()
		store = db.NewStore(database, slogger)
	case "memory":
		// An in-memory store is empty on every run; seeding it only makes
		// sense for smoke tests of the fixture format.
		store = memorystore.New(slogger)
	default:
		slogger.Error("unknown storage driver", slog.String("driver", cfg.Storage.Driver))
		os.Exit(1)
	}

	opts := services.Options{
		MaxSlots:      cfg.Machine.MaxSlots,
		Denominations: cfg.Machine.Denominations,
	}
	slotService := services.NewSlotService(store, nil, opts, slogger)
	inventoryService := services.NewInventoryService(store, nil, nil, opts, slogger)

	slotsCreated := 0
	slotsSkipped := 0
	itemsAdded := 0

	for _, fs := range fixture.Slots {
		slot, err := slotService.Create(ctx, fs.Code, fs.Capacity)
		if err != nil {
			// Re-running the seeder against an already seeded machine is
			// expected; existing slots are left untouched.
			if errors.Is(err, domain.ErrSlotCodeExists) {
				slogger.Info("slot already exists, skipping",
					slog.String("code", fs.Code))
				slotsSkipped++
				continue
			}
			slogger.Error("failed to create slot",
				slog.String("code", fs.Code),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		slotsCreated++

		if len(fs.Items) == 0 {
			continue
		}

		added, err := inventoryService.AddBulk(ctx, slot.ID, fs.Items)
		if err != nil {
			slogger.Error("failed to stock slot",
				slog.String("code", fs.Code),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		itemsAdded += added
	}

	fmt.Printf("Seeding complete: %d slots created, %d skipped, %d item rows added\n",
		slotsCreated, slotsSkipped, itemsAdded)

	slogger.Info("seed operation completed",
		slog.Int("slots_created", slotsCreated),
		slog.Int("slots_skipped", slotsSkipped),
		slog.Int("items_added", itemsAdded))
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	if len(fixture.Slots) == 0 {
		return nil, fmt.Errorf("fixture contains no slots")
	}
	seen := make(map[string]bool, len(fixture.Slots))
	for _, s := range fixture.Slots {
		if s.Code == "" {
			return nil, fmt.Errorf("fixture slot with empty code")
		}
		if s.Capacity <= 0 {
			return nil, fmt.Errorf("fixture slot %q has non-positive capacity", s.Code)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("duplicate slot code %q in fixture", s.Code)
		}
		seen[s.Code] = true
	}

	return &fixture, nil
}
