// Package cli implements the imi command line.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hyperjump/imi/internal/config"
	"github.com/hyperjump/imi/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/hyperjump/imi/internal/cli.version=1.2.3"
var version = "dev"

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "/usr/local/etc/imi/config.yaml"

var (
	configPath string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "imi",
	Short:         "imi - semantic search over a corpus of items",
	Long:          color.CyanString("imi") + " ranks items by embedding similarity to a free-text query.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(initCmd)
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; if that exists it is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == DefaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads config and builds a logger named after the command.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug, cmd.Name())
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imi version %s\n", version)
	},
}

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	Long:  "Write a config file with every setting at its default to --config.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return err
		}
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
}
