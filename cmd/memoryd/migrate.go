package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
)

// runMigrate creates the graph schema.
func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := graphstore.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := graphstore.Migrate(cmd.Context(), db); err != nil {
		return err
	}

	fmt.Printf("schema ready at %s\n", cfg.Database.Path)
	return nil
}
