package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/config"
	"github.com/fyrsmithlabs/memoryd/internal/graphstore"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// runHealth checks SQLite and Qdrant connectivity and reports each.
func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(&cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	var unhealthy bool

	db, err := graphstore.Open(cfg.Database.Path)
	if err == nil {
		err = db.PingContext(cmd.Context())
		db.Close()
	}
	if err != nil {
		unhealthy = true
		fmt.Printf("sqlite  %s: FAIL (%v)\n", cfg.Database.Path, err)
	} else {
		fmt.Printf("sqlite  %s: ok\n", cfg.Database.Path)
	}

	// vectorstore.New health-checks the connection before returning.
	index, err := vectorstore.New(vectorstore.Config{
		Host:       cfg.VectorStore.Host,
		Port:       cfg.VectorStore.Port,
		VectorSize: uint64(cfg.VectorStore.VectorSize),
		UseTLS:     cfg.VectorStore.UseTLS,
	}, log)
	if err != nil {
		unhealthy = true
		fmt.Printf("qdrant  %s:%d: FAIL (%v)\n", cfg.VectorStore.Host, cfg.VectorStore.Port, err)
	} else {
		index.Close()
		fmt.Printf("qdrant  %s:%d: ok\n", cfg.VectorStore.Host, cfg.VectorStore.Port)
	}

	if unhealthy {
		return errors.New("one or more checks failed")
	}
	return nil
}
