// petriage indexes Windows binaries for triage: it computes per-section
// Shannon entropy, pulls VERSIONINFO string metadata, persists one record
// per binary to a SQLite database, and answers canned analytical queries
// over the results (packed/encrypted candidates, binaries with missing
// publisher metadata, hot code sections).
package main

import (
	"log"
	"os"

	"github.com/petriage/petriage/pkg/store"
)

const (
	// constProjectName name used in version output.
	constProjectName = "petriage"
	// constVersion Version
	constVersion = "1.0.0"
	// constStoreNameDefault default SQLite database filename.
	constStoreNameDefault = "binary_info.db"
	// constDelimeterDefault default delimiter for CSV output.
	constDelimeterDefault = ","
	// constHighEntropyThreshold default threshold for the high-entropy query.
	constHighEntropyThreshold = 7.5
	// constSectionEntropyThreshold default threshold for the per-section query.
	constSectionEntropyThreshold = 7.0
	// constSectionNameDefault default section for the per-section query.
	constSectionNameDefault = ".text"
)

// constBinaryExtensions are the filename extensions collected by directory
// scans, compared case-insensitively.
var constBinaryExtensions = []string{".exe", ".dll", ".cpl"}

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "high-entropy", "missing-info", "text-section":
			runQuery(args[0], args[1:])
			return
		case "scan":
			args = args[1:]
		}
	}

	cfg := newConfigFromFlags(args)

	if cfg.outCfg.csvOutput && cfg.outCfg.jsonOutput {
		log.Fatal("csv and json output options are mutually exclusive")
	}

	if cfg.outCfg.csvOutput || cfg.outCfg.jsonOutput {
		cfg.results = NewResults()
		if cfg.outCfg.delimChar != constDelimeterDefault {
			cfg.results = cfg.results.WithDelimiter(cfg.outCfg.delimChar)
		}
	}

	if !cfg.outCfg.csvOutput && !cfg.outCfg.jsonOutput {
		cfg.outCfg.printInterimResults = true
	}

	var err error
	if cfg.store, err = store.Open(cfg.dbPath); err != nil {
		log.Fatalf("could not open results database: %v", err)
	}
	defer func() {
		_ = cfg.store.Close()
	}()

	switch {
	case cfg.inCfg.sshConfig.Host != "":
		err = cfg.scanRemote()
	case cfg.inCfg.filePath != "":
		err = cfg.scanOne(cfg.inCfg.filePath)
	case cfg.inCfg.dirPath != "":
		err = cfg.scanDir()
	}
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	cfg.output()
}
