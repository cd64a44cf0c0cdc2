package tables

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/seed"
)

const tableSeedApplication = "tables"

//go:embed seed.json
var SeedFS embed.FS

type bootstrapSeedDocument struct {
	Tables []tableSeed `json:"tables"`
}

type tableSeed struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
	Sort     int    `json:"sort"`
	Status   string `json:"status"`
}

func loadTableSeeds(seedFS embed.FS) ([]tableSeed, error) {
	seedBytes, err := seedFS.ReadFile("seed.json")
	if err != nil {
		return nil, fmt.Errorf("read seed.json: %w", err)
	}

	if len(seedBytes) == 0 {
		return nil, errors.New("table seed file is empty")
	}

	var doc bootstrapSeedDocument
	if err := json.Unmarshal(seedBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode table seed file: %w", err)
	}

	if len(doc.Tables) == 0 {
		return nil, errors.New("table seed file does not contain tables")
	}

	return doc.Tables, nil
}

// ApplyTableSeeds ensures all predefined tables exist. Without a tracker the
// seeds run every time; each one is a no-op when its table number exists.
func ApplyTableSeeds(ctx context.Context, repo TableRepo, tracker seed.Tracker, seedFS embed.FS, logger aqm.Logger) error {
	if repo == nil {
		return errors.New("table repository is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	seedDocs, err := loadTableSeeds(seedFS)
	if err != nil {
		return err
	}

	seedDefs := buildTableSeedDefinitions(seedDocs, repo, logger)
	if len(seedDefs) == 0 {
		logger.Info("No table seeds to apply")
		return nil
	}

	logger.Info("Applying table seeds", "count", len(seedDefs))
	if tracker != nil {
		if err := seed.Apply(ctx, tracker, seedDefs, tableSeedApplication); err != nil {
			return err
		}
	} else {
		for _, def := range seedDefs {
			if err := def.Run(ctx); err != nil {
				return fmt.Errorf("seed %s: %w", def.ID, err)
			}
		}
	}
	logger.Info("Table seeds applied successfully")
	return nil
}

func buildTableSeedDefinitions(raw []tableSeed, repo TableRepo, logger aqm.Logger) []seed.Seed {
	var defs []seed.Seed

	for _, s := range raw {
		seedData := s
		if strings.TrimSpace(seedData.Number) == "" {
			logger.Info("Skipping seed table with empty number")
			continue
		}

		defs = append(defs, seed.Seed{
			ID:          fmt.Sprintf("2026-09-01_table_%s", seedIdentifier(seedData.Number)),
			Description: fmt.Sprintf("Ensure table %s exists", seedData.Number),
			Run: func(ctx context.Context) error {
				return seedData.ensureTable(ctx, repo, logger)
			},
		})
	}

	return defs
}

func seedIdentifier(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}

	replacer := strings.NewReplacer("-", "_", " ", "_", "/", "_", "\\", "_")
	value = replacer.Replace(value)

	var builder strings.Builder
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			builder.WriteRune(r)
		}
	}

	result := builder.String()
	if result == "" {
		return "seed"
	}
	return result
}

func (s tableSeed) ensureTable(ctx context.Context, repo TableRepo, logger aqm.Logger) error {
	number := strings.TrimSpace(s.Number)
	if number == "" {
		return errors.New("table number is required")
	}

	existing, err := repo.GetByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("lookup table %s: %w", number, err)
	}
	if existing != nil {
		logger.Debug("Seed table already exists", "number", number)
		return nil
	}

	table := NewTable()
	table.Number = number
	table.Capacity = s.Capacity
	table.Sort = s.Sort
	if isAdminStatus(s.Status) {
		table.Status = s.Status
	}
	table.CreatedBy = "seed:bootstrap"
	table.UpdatedBy = "seed:bootstrap"
	table.BeforeCreate()

	if err := repo.Create(ctx, table); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			return nil
		}
		return fmt.Errorf("create seed table %s: %w", number, err)
	}

	logger.Info("Seed table created", "number", number, "id", table.ID.String())
	return nil
}

// SeedingFunc returns an aqm lifecycle OnStart-compatible function which
// starts applying table seeds in the background.
func SeedingFunc(seedCtx context.Context, repo TableRepo, tracker seed.Tracker, logger aqm.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		logger.Info("Starting table seeding in background")
		go func() {
			if err := ApplyTableSeeds(seedCtx, repo, tracker, SeedFS, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Table seeds failed: %v", err)
			} else if err == nil {
				logger.Info("Table seeding completed")
			}
		}()
		return nil
	}
}

// StopFunc returns an aqm lifecycle OnStop-compatible function which calls
// the provided cancel function to stop any background seeding goroutine.
func StopFunc(cancelFunc context.CancelFunc) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if cancelFunc != nil {
			cancelFunc()
		}
		return nil
	}
}
