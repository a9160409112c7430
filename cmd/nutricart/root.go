package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/platform/config"
	"finitefield.org/nutricart/internal/storage"
)

// cliScope namespaces the cart the CLI works on inside the shared storage backend.
const cliScope = "cli"

type app struct {
	envFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nutricart",
		Short: "Grocery storefront with a device-local cart",
		Long: `nutricart serves the storefront (product grid, health filters, sorting, cart drawer
and profile page) in front of the catalog backend, and offers offline helpers for
inspecting catalogs and the local cart.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), config.WithEnvFile(a.envFile))
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with NUTRICART_* overrides")

	root.AddCommand(newServeCmd(a), newCatalogCmd(a), newCartCmd(a))
	return root
}

func (a *app) registry() (*catalog.Registry, error) {
	if a.cfg.Catalog.CategoriesFile != "" {
		return catalog.LoadRegistry(a.cfg.Catalog.CategoriesFile, a.cfg.Catalog.DefaultCategory)
	}
	return catalog.NewRegistry(catalog.DefaultRegistry().Categories(), a.cfg.Catalog.DefaultCategory)
}

func (a *app) openStorage(ctx context.Context) (storage.Backend, error) {
	path := a.cfg.Storage.Path
	if a.cfg.Storage.Driver == storage.DriverSQLite && filepath.Ext(path) == "" {
		path = filepath.Join(path, "slots.db")
	}
	backend, err := storage.Open(ctx, a.cfg.Storage.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return backend, nil
}

func (a *app) category(reg *catalog.Registry, slug string) (catalog.Category, error) {
	c, ok := reg.Lookup(slug)
	if !ok {
		return catalog.Category{}, fmt.Errorf("unknown category %q", slug)
	}
	return c, nil
}
