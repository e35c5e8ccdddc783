// Command gatekeeperd serves the gatekeeper REST API backed by the in-memory
// store.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper"
	gkext "github.com/xraph/gatekeeper/extension"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/store/memory"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()
	s := memory.New()
	if cfg.SeedAdmin {
		if err := seedAdmin(ctx, s, cfg.AdminRole); err != nil {
			log.Fatal(err)
		}
	}

	opts := []gkext.ExtOption{
		gkext.WithStore(s),
		gkext.WithLogger(logger),
		gkext.WithConfig(gkext.Config{
			BasePath: cfg.BasePath,
			Driver:   gkext.DriverMemory,
		}),
	}
	if !cfg.Migrate {
		opts = append(opts, gkext.WithDisableMigrate())
	}

	app := forge.New(forge.WithExtensions(gkext.New(opts...)))

	logger.Info("gatekeeperd: starting", "base_path", cfg.BasePath+"/v1", "env", cfg.Environment)
	if err := app.Start(ctx); err != nil {
		log.Fatal(err)
	}
}

// seedAdmin creates the immutable system role if it does not exist yet.
func seedAdmin(ctx context.Context, s store.Store, name string) error {
	if _, err := s.GetRoleByName(ctx, name); err == nil {
		return nil
	} else if !errors.Is(err, gatekeeper.ErrRoleNotFound) {
		return err
	}
	return s.CreateRole(ctx, &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		Description: "Built-in role with every permission",
		IsSystem:    true,
	})
}
