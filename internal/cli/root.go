// Package cli implements the coasters command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/coasters/internal/app"
	"github.com/dshills/coasters/internal/config"
	"github.com/dshills/coasters/internal/log"
)

const envPrefix = "COASTERS"

// Version is set through ldflags.
var Version = "dev"

// NewRootCmd builds the coasters command tree.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:           "coasters",
		Short:         "Edit and maintain roller coaster track worlds",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cmd, v); err != nil {
				return err
			}
			logger, err := app.NewLogger(app.LoggerConfig{
				Level:  config.LogLevel,
				Format: config.LogFormat,
				Filter: config.LogFilter,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			log.ResetDefault(logger)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.ConfigFile, "config", "",
		"config file (default is ./coasters.yml)")
	pf.StringVar(&config.DataDir, "data-dir", config.DefaultDataDir,
		"directory holding the coaster files")
	pf.StringVar(&config.WorldName, "world", config.DefaultWorldName,
		"name of the world")
	pf.StringVar(&config.SettingsFile, "settings", "",
		"interaction settings file (default is <data-dir>/"+config.DefaultSettingsFile+")")
	pf.StringVar(&config.LogLevel, "log-level", config.DefaultLogLevel,
		"log level (debug, info, warn, error)")
	pf.StringVar(&config.LogFormat, "log-format", config.DefaultLogFormat,
		"log format (text, json)")
	pf.StringVar(&config.LogFilter, "log-filter", "",
		"zapfilter rules, e.g. '*:persist debug:*'")
	pf.DurationVar(&config.AutosaveInterval, "autosave", config.DefaultAutosaveInterval,
		"time between background saves, 0 disables them")
	pf.DurationVar(&config.TickRate, "tick", config.DefaultTickRate,
		"tick loop period")

	rootCmd.AddCommand(
		newInspectCmd(),
		newRunCmd(),
		newResaveCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// initConfig reads the config file and COASTERS_* environment variables
// into the flags that were not given on the command line.
func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	if config.ConfigFile != "" {
		v.SetConfigFile(config.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("coasters")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist.
		if config.ConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	}

	// Flags of the executed command include the inherited persistent ones.
	bindFlags(cmd, v)
	return nil
}

// bindFlags binds each cobra flag to its viper key and environment variable
// and copies the viper value into flags not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not set flag value for %s: %v\n", f.Name, err)
			}
		}
	})
}

// settingsPath resolves the interaction settings file. Without --settings
// the file lives in the data directory.
func settingsPath() string {
	if config.SettingsFile != "" {
		return config.SettingsFile
	}
	return filepath.Join(config.DataDir, config.DefaultSettingsFile)
}

// appOptions builds application options from the process configuration.
func appOptions() app.Options {
	return app.Options{
		DataDir:          config.DataDir,
		WorldName:        config.WorldName,
		SettingsFile:     settingsPath(),
		AutosaveInterval: config.AutosaveInterval,
		TickRate:         config.TickRate,
		Logger:           log.Default(),
	}
}

// openApp creates the application and closes it when fn returns.
func openApp(opts app.Options, fn func(a *app.Application) error) (err error) {
	a, err := app.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if serr := a.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}()
	return fn(a)
}
