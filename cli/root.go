// =============================================================================
// flexpay - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI and the process-level
// configuration shared by every subcommand.
//
// COBRA CLI STRUCTURE:
//   flexpay
//   ├── serve     HTTP API over a SQLite store
//   ├── payroll   One payroll run from files on disk
//   ├── invoice   One invoice run from files on disk
//   ├── config    Inspect and validate client configuration
//   └── version
//
// CONFIGURATION (viper):
//   Flags, then FLEXPAY_* environment variables, then an optional --config
//   YAML file. Keys: db, port, log-level, log-format, clients-file,
//   allowed-origins.
//
// =============================================================================

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/logging"
	"github.com/warp/flexpay-engine/store"
	"github.com/warp/flexpay-engine/store/memory"
	"github.com/warp/flexpay-engine/store/sqlite"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "FLEXPAY"

// Process configuration keys.
const (
	KeyConfig         = "config"
	KeyDB             = "db"
	KeyPort           = "port"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyClientsFile    = "clients-file"
	KeyAllowedOrigins = "allowed-origins"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "flexpay",
		Short: "Flex workforce payroll and invoice transformation engine",
		Long: `flexpay turns client time-clock extracts into payroll upload files and
invoice detail files.

Example Usage:
  flexpay payroll --client uofl --timecards tc.csv --crosswalk xw.xlsx --out payroll.csv
  flexpay invoice --client uofl --current payroll.csv --detail wk1.csv --out-dir ./out
  flexpay serve --db ./flexpay.db --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.String(KeyConfig, "", "Optional YAML file with process settings")
	pf.String(KeyDB, "", "SQLite database for client configs and the run audit")
	pf.String(KeyClientsFile, "", "YAML file with client configurations (overrides --db for lookups)")
	pf.String(KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	pf.String(KeyLogFormat, "json", "Log format (json, console)")
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		a.serveCmd(),
		a.payrollCmd(),
		a.invoiceCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) init() error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if path := a.v.GetString(KeyConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	logger, err := logging.New(logging.Config{
		Level:   a.v.GetString(KeyLogLevel),
		Format:  a.v.GetString(KeyLogFormat),
		Version: Version,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// openStore opens the run audit store and the configuration source.
//
// With --db the SQLite store serves both; without it runs are recorded in
// memory for the life of the process. --clients-file replaces the config
// source in either case.
func (a *app) openStore() (store.Store, config.Source, error) {
	var st store.Store
	if path := a.v.GetString(KeyDB); path != "" {
		sq, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		st = sq
	} else {
		st = memory.New()
	}

	var source config.Source = st
	if path := a.v.GetString(KeyClientsFile); path != "" {
		fs, err := config.LoadFileSource(path)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		source = fs
	}
	return st, source, nil
}

var errFlagRequired = errors.New("flag is required")

func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("--%s: %w", name, errFlagRequired)
	}
	return v, nil
}
