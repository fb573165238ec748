// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spreadcoin/spreadd/blockchain"
	"github.com/spreadcoin/spreadd/database"
	"github.com/spreadcoin/spreadd/database/ldb"
	"github.com/spreadcoin/spreadd/database/memdb"
	"github.com/spreadcoin/spreadd/infrastructure/logger"
)

const headersDirName = "headers"

// loadStore opens the header store selected by the configuration.
func loadStore(cfg *ConfigFlags, registerer prometheus.Registerer) (database.Store, error) {
	if cfg.DbType == dbTypeMemdb {
		log.Infof("Using an in-memory header store, nothing will be persisted")
		return memdb.New(), nil
	}

	err := os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dbPath := filepath.Join(cfg.DataDir, headersDirName)
	log.Infof("Loading header database from '%s'", dbPath)
	return ldb.Open(dbPath, &ldb.Options{Registerer: registerer})
}

// logMetrics writes the gathered counters and gauges to the log.
func logMetrics(gatherer prometheus.Gatherer) {
	families, err := gatherer.Gather()
	if err != nil {
		log.Warnf("Failed to gather metrics: %s", err)
		return
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				log.Infof("%s %.0f", family.GetName(), metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				log.Infof("%s %.0f", family.GetName(), metric.GetGauge().GetValue())
			}
		}
	}
}

// realMain is the real main function for the utility. It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func realMain() error {
	// Load configuration and parse command line.
	cfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	err = logger.InitLogStdout(logger.LevelTrace)
	if err != nil {
		return err
	}
	defer logger.BackendLog.Close()

	registry := prometheus.NewRegistry()
	store, err := loadStore(cfg, registry)
	if err != nil {
		log.Errorf("Failed to load header store: %s", err)
		return err
	}
	defer store.Close()

	metrics, err := blockchain.NewMetrics(registry)
	if err != nil {
		log.Errorf("Failed to register chain metrics: %s", err)
		return err
	}

	chain, err := blockchain.New(&blockchain.Config{
		Params:  cfg.NetParams(),
		Store:   store,
		Metrics: metrics,
	})
	if err != nil {
		log.Errorf("Failed to initialize block chain: %s", err)
		return err
	}

	fi, err := os.Open(cfg.InFile)
	if err != nil {
		log.Errorf("Failed to open file %s: %s", cfg.InFile, err)
		return errors.WithStack(err)
	}
	defer fi.Close()

	// Create a block importer for the database and input file and start it.
	// The done channel returned from start will contain an error if
	// anything went wrong.
	importer := newBlockImporter(chain, cfg, fi)

	// Perform the import asynchronously. This allows blocks to be
	// processed and read in parallel. The results channel returned from
	// Import contains the statistics about the import including an error
	// if something went wrong.
	log.Info("Starting import")
	resultsChan := importer.Import()
	results := <-resultsChan
	if results.err != nil {
		log.Errorf("%+v", results.err)
		return results.err
	}

	best := chain.BestSnapshot()
	log.Infof("Processed a total of %d blocks (%d imported, %d already "+
		"known), best height %d (%s)", results.blocksProcessed,
		results.blocksImported,
		results.blocksProcessed-results.blocksImported,
		best.Height, best.Hash)

	if cfg.MetricsDump {
		logMetrics(registry)
	}
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
