// Package main implements the memoryd operational CLI.
//
// memoryd is a library-first project; this binary covers the operational
// tasks that need real infrastructure: creating the SQLite schema, erasing
// a tenant's data, and checking connectivity.
//
// Configuration is loaded from a YAML file plus MEMORYD_* environment
// variables. See internal/config for the mapping.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string

	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "Operational CLI for the memoryd knowledge graph",
	Long: `memoryd manages the per-user knowledge graph and its derived vector index.

It provides commands for schema migration, whole-tenant erasure, and
connectivity checks against SQLite and Qdrant.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(eraseTenantCmd)
	rootCmd.AddCommand(healthCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the SQLite schema",
	Long: `Create the graph schema (entities, relations, observations) if absent.

Safe to run repeatedly; existing tables are left untouched.

Examples:
  memoryd migrate
  MEMORYD_DATABASE_PATH=/var/lib/memoryd/graph.db memoryd migrate`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var eraseTenantCmd = &cobra.Command{
	Use:   "erase-tenant <tenant-id>",
	Short: "Irreversibly erase all data for one tenant",
	Long: `Delete every entity, relation and observation belonging to the tenant,
drop the tenant's vector collections, and print per-kind counts.

This cannot be undone.

Examples:
  memoryd erase-tenant user@example.com
  memoryd erase-tenant u1 --graph-only`,
	Args: cobra.ExactArgs(1),
	RunE: runEraseTenant,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check SQLite and Qdrant connectivity",
	Long: `Open the configured SQLite database and ping the configured Qdrant
server, reporting the status of each.

Examples:
  memoryd health
  memoryd health --config memoryd.yaml`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}
