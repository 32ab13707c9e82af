package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

type rootConfiguration struct {
	// The segsim home directory
	HomeDir string
	// Configuration file location. If it's relative, then it's relative to HomeDir.
	CfgFile string

	Memory   int
	Policy   string
	LogLevel string
	JSON     bool
}

const (
	// The prefix for configuration keys inside the environment
	envPrefix = "SEGSIM"
	// The default name for the config file
	defaultConfigFile = "config.yaml"
	// The default home directory
	defaultHomeDir = "$HOME/.segsim"

	defaultMemory = 1024
	defaultPolicy = "first"
)

func newRootCmd() *cobra.Command {
	config := &rootConfiguration{}

	rootCmd := &cobra.Command{
		Use:   "segsim",
		Short: "Simulate segmented memory allocation",
		Long: `segsim drives a segmented memory allocator over a simulated address space.
Processes request one or more segments, placed by first-fit, best-fit or worst-fit.
When memory runs out, the longest-resident other process is evicted.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(cmd, config)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.HomeDir, "home", defaultHomeDir, "set the SEGSIM_HOME for this invocation")
	flags.StringVar(&config.CfgFile, "config", "", "config file location (default is $SEGSIM_HOME/config.yaml)")
	flags.IntVar(&config.Memory, "memory", defaultMemory, "size of the simulated address space")
	flags.StringVar(&config.Policy, "policy", defaultPolicy, "default placement policy: first, best or worst")
	flags.StringVar(&config.LogLevel, "log-level", "warn", "allocator log level: debug, info, warn or error")
	flags.BoolVar(&config.JSON, "json", false, "print the memory map as JSON")

	rootCmd.AddCommand(newRunCmd(config), newShellCmd(config))

	return rootCmd
}

func execute() {
	cobra.CheckErr(newRootCmd().Execute())
}

// initializeConfig reads in the config file and SEGSIM_ environment variables, if set, and applies
// them to every flag that was not set on the command line
func initializeConfig(cmd *cobra.Command, rootConfig *rootConfiguration) error {
	v := viper.New()

	rootConfig.HomeDir = os.ExpandEnv(rootConfig.HomeDir)
	if rootConfig.CfgFile == "" {
		rootConfig.CfgFile = defaultConfigFile
	}
	if !filepath.IsAbs(rootConfig.CfgFile) {
		rootConfig.CfgFile = filepath.Join(rootConfig.HomeDir, rootConfig.CfgFile)
	}
	if fileExists(rootConfig.CfgFile) {
		v.SetConfigFile(rootConfig.CfgFile)
	}

	// A missing config file is fine, an unparseable one is not
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrapf(err, "reading config file %s", rootConfig.CfgFile)
		}
	}

	// --memory binds to SEGSIM_MEMORY
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return errors.Wrap(err, "bind flags failed")
	}

	return nil
}

// bindFlags binds each cobra flag to its associated viper configuration (config file and environment
// variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so --log-level binds to SEGSIM_LOG_LEVEL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				bindFlagErr = errors.Wrap(err, "could not bind env to cobra flag")
				return
			}
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = errors.Wrapf(err, "could not set flag %s from configuration", f.Name)
				return
			}
		}
	})
	return bindFlagErr
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// newLogger builds the text logger that allocator diagnostics are written to
func (c *rootConfiguration) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, errors.Newf("unknown log level %q", c.LogLevel)
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w)), nil
}
