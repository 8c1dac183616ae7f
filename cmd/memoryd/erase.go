package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/memory"
	"github.com/fyrsmithlabs/memoryd/internal/tenant"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// graphOnly skips the vector index during erase.
var graphOnly bool

func init() {
	eraseTenantCmd.Flags().BoolVar(&graphOnly, "graph-only", false, "erase graph data only, leave vector collections")
}

// runEraseTenant erases everything a tenant owns and prints per-kind counts.
func runEraseTenant(cmd *cobra.Command, args []string) error {
	tenantID := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(&cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := graphstore.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	svcCfg := memory.ServiceConfig{
		Guard: tenant.NewGuard(db, log),
		Store: graphstore.New(log),
		Log:   log,
	}

	if !graphOnly {
		index, err := vectorstore.New(vectorstore.Config{
			Host:       cfg.VectorStore.Host,
			Port:       cfg.VectorStore.Port,
			VectorSize: uint64(cfg.VectorStore.VectorSize),
			UseTLS:     cfg.VectorStore.UseTLS,
		}, log)
		if err != nil {
			return fmt.Errorf("connecting to qdrant (use --graph-only to skip): %w", err)
		}
		defer index.Close()
		svcCfg.Index = index
	}

	svc, err := memory.NewService(svcCfg)
	if err != nil {
		return err
	}

	result, err := svc.EraseAll(cmd.Context(), tenantID)
	if err != nil {
		return err
	}

	fmt.Printf("erased tenant %s\n", tenantID)
	fmt.Printf("  entities:     %d\n", result.Counts.Entities)
	fmt.Printf("  relations:    %d\n", result.Counts.Relations)
	fmt.Printf("  observations: %d\n", result.Counts.Observations)
	if result.VectorsErased {
		fmt.Println("  vector collections dropped")
	}
	return nil
}
