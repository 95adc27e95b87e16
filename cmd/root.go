// =============================================================================
// Rebate Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reconciler)
//   ├── reconcileCmd (reconciler reconcile)
//   ├── validateCmd  (reconciler validate)
//   ├── groupsCmd    (reconciler groups)
//   ├── lookupCmd    (reconciler lookup)
//   └── versionCmd   (reconciler version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose) and the
//   shared setup every working command needs: loading config.yaml,
//   resolving groups and building the logger.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Rebate Reconciler - Map guessed customer and distributor names to canonical identifiers",
	Long: `Rebate Reconciler matches a group's "guess" rebate export against the
authoritative "truth" export on a join key built from shared columns, and
produces two deduplicated lookup tables:

  customer_mini.csv     group, customerName, fuseId
  distributor_mini.csv  group, fuzzyName, trueName

Groups (display name + numeric id) are configured, not hard-coded: list them
in config.yaml or drop one YAML file per group into the groups directory.

Example Usage:
  reconciler reconcile                          # Reconcile every configured group
  reconciler reconcile --group "Esmer Tile" --merge
  reconciler validate                           # Check every input without writing
  reconciler lookup customer --group "Esmer Tile" "Acme Corp"`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app bundles what the working commands share.
type app struct {
	cfg    *config.MainConfig
	groups []config.GroupConfig
	logger zerolog.Logger
	close  func() error
}

// loadConfig loads the configuration and builds the logger. Commands that
// do not read group inputs stop here.
func loadConfig() (*app, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Config{
		Level:  level,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, close: closer}, nil
}

// loadApp loads the configuration, resolves the groups and builds the
// logger. When only is non-empty the groups are restricted to those names.
func loadApp(only []string) (*app, error) {
	a, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg, logger, closer := a.cfg, a.logger, a.close

	groups, err := config.ResolveGroups(cfg)
	if err != nil {
		closer()
		return nil, fmt.Errorf("failed to load group configs: %w", err)
	}

	if len(only) > 0 {
		groups, err = selectGroups(groups, only)
		if err != nil {
			closer()
			return nil, err
		}
	}

	if len(groups) == 0 {
		closer()
		return nil, fmt.Errorf("no groups configured: add groups to %s or %s", cfgFile, cfg.GroupsDir)
	}

	logger.Debug().
		Str("config", cfgFile).
		Int("groups", len(groups)).
		Msg("configuration loaded")

	return &app{cfg: cfg, groups: groups, logger: logger, close: closer}, nil
}

// selectGroups keeps the named groups, in configuration order.
func selectGroups(groups []config.GroupConfig, names []string) ([]config.GroupConfig, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var selected []config.GroupConfig
	for _, g := range groups {
		if wanted[g.Name] {
			selected = append(selected, g)
			delete(wanted, g.Name)
		}
	}

	for _, n := range names {
		if wanted[n] {
			return nil, fmt.Errorf("unknown or disabled group %q", n)
		}
	}

	return selected, nil
}
