// Package config defines chaincored's command-line configuration,
// grounded on the teacher's cmd/txgen/config.go
// go-flags parsing pattern (default-home-dir derivation via
// util.AppDataDir, post-parse validation, flags.NewParser usage).
package config

import (
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/ledgerforge/chaincore/chainparams"
	"github.com/ledgerforge/chaincore/logger"
	"github.com/ledgerforge/chaincore/util"
)

const (
	defaultLogFilename     = "chaincored.log"
	defaultMaxLogRolls     = 8
	defaultMaxOrphanBlocks = 500
	defaultMaxOrphanTxs    = 1000
	defaultDBDirname       = "db"
)

// defaultHomeDir is where chaincored keeps its database and logs absent
// an explicit --datadir, matching the teacher's per-application
// AppDataDir convention.
var defaultHomeDir = util.AppDataDir("chaincored", false)

// Config is chaincored's full set of runtime options.
type Config struct {
	DataDir         string `long:"datadir" description:"Directory to store block and transaction data"`
	LogDir          string `long:"logdir" description:"Directory to store log output"`
	SimNet          bool   `long:"simnet" description:"Use the simulation test network"`
	LogLevel        string `long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}" default:"info"`
	MaxOrphanBlocks int    `long:"maxorphanblocks" description:"Maximum number of orphan blocks to keep in memory"`
	MaxOrphanTxs    int    `long:"maxorphantxs" description:"Maximum number of orphan transactions to keep in memory"`

	// NoFileLogging disables the rotating file logger entirely, used by
	// tests and by --simnet one-shot runs that would otherwise litter
	// the default home directory.
	NoFileLogging bool `long:"nofilelogging" description:"Write logs to stdout only, skip the rotating log file"`

	Params *chainparams.Params `no-flag:"true"`
}

// Load parses command-line arguments into a Config, fills in every
// default the flags did not set, validates the result, and initializes
// the logging subsystem — mirroring parseConfig's single entry-point
// shape, generalized from a point tool's options to a daemon's.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		MaxOrphanBlocks: defaultMaxOrphanBlocks,
		MaxOrphanTxs:    defaultMaxOrphanTxs,
	}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(defaultHomeDir, defaultDBDirname)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultHomeDir
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --loglevel %q", cfg.LogLevel)
	}

	if cfg.MaxOrphanBlocks <= 0 {
		return nil, errors.New("--maxorphanblocks must be positive")
	}
	if cfg.MaxOrphanTxs <= 0 {
		return nil, errors.New("--maxorphantxs must be positive")
	}

	if cfg.SimNet {
		cfg.Params = chainparams.SimNetParams
	} else {
		cfg.Params = chainparams.MainNetParams
	}

	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := logger.InitLogRotator(logFile, defaultMaxLogRolls); err != nil {
			return nil, errors.Wrap(err, "failed to initialize log rotator")
		}
	}
	logger.SetLevel(level)

	return cfg, nil
}
