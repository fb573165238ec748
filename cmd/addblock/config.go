// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/config"
	"github.com/spreadcoin/spreadd/infrastructure/logger"
)

const (
	dbTypeLdb   = "ldb"
	dbTypeMemdb = "memdb"

	defaultDbType   = dbTypeLdb
	defaultDataFile = "bootstrap.dat"
	defaultProgress = 10
	defaultLogLevel = "info"
)

var knownDbTypes = []string{dbTypeLdb, dbTypeMemdb}

// ConfigFlags defines the configuration options for addblock.
//
// See loadConfig for details on the configuration load process.
type ConfigFlags struct {
	DataDir     string `short:"b" long:"datadir" description:"Location of the spreadd data directory"`
	DbType      string `long:"dbtype" description:"Database backend to use for the block chain"`
	InFile      string `short:"i" long:"infile" description:"File containing the block(s)"`
	Progress    int    `short:"p" long:"progress" description:"Show a progress message each time this number of seconds have passed -- Use 0 to disable progress announcements"`
	LogLevel    string `short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical} or subsystem=level pairs"`
	Lazy        bool   `long:"lazy" description:"Decode blocks lazily, parsing transactions only when accessed"`
	NoPoWCheck  bool   `long:"nopowcheck" description:"Skip the proof of work hash check (the target range is still enforced)"`
	MetricsDump bool   `long:"metricsdump" description:"Log the collected chain metrics once the import finishes"`
	config.NetworkFlags
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".spreadd", "data")
	}
	return filepath.Join(homeDir, ".spreadd", "data")
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// loadConfig initializes and parses the config using the passed command
// line arguments.
func loadConfig(args []string) (*ConfigFlags, []string, error) {
	// Default config.
	cfg := &ConfigFlags{
		DataDir:  defaultDataDir(),
		DbType:   defaultDbType,
		InFile:   defaultDataFile,
		Progress: defaultProgress,
		LogLevel: defaultLogLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(cfg, flags.Default)
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); !ok || flagsErr.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, nil, err
	}

	// Validate database type.
	if !validDbType(cfg.DbType) {
		str := "%s: The specified database type [%s] is invalid -- " +
			"supported types %s"
		err := errors.Errorf(str, "loadConfig", cfg.DbType, strings.Join(knownDbTypes, ", "))
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if cfg.Progress < 0 {
		err := errors.Errorf("%s: The progress interval may not be negative", "loadConfig")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	err = logger.ParseAndSetDebugLevels(cfg.LogLevel)
	if err != nil {
		err := errors.Wrapf(err, "%s", "loadConfig")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Append the network type to the data directory so it is "namespaced"
	// per network.
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.NetParams().Name)

	// Ensure the specified block file exists.
	if !fileExists(cfg.InFile) {
		str := "%s: The specified block file [%s] does not exist"
		err := errors.Errorf(str, "loadConfig", cfg.InFile)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	return cfg, remainingArgs, nil
}
