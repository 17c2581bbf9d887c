package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guarzo/pkmpricedash/internal/config"
	"github.com/guarzo/pkmpricedash/internal/logging"
	"github.com/guarzo/pkmpricedash/internal/prices"
)

// app is filled in by initConfig before any subcommand runs.
type app struct {
	v    *viper.Viper
	cfg  *config.Config
	log  *logging.Log
	mock bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	var cfgFile, envFile string
	root := &cobra.Command{
		Use:   "pricedash",
		Short: "Pokémon card price dashboard",
		Long: `pricedash fetches card price records from PokemonPriceTracker, summarizes
them, and serves a searchable dashboard. The API key is read from
POKE_PRICE_API_KEY (environment, .env file, or api.key in config.yaml).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd.ErrOrStderr(), cfgFile, envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/pricedash/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	flags.BoolVar(&a.mock, "mock", false, "use built-in sample prices instead of the API")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "write logs to this file with rotation instead of stderr")
	flags.String("base-url", config.DefaultBaseURL, "pricing API base URL")

	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("logging.file", flags.Lookup("log-file"))
	_ = a.v.BindPFlag("api.base_url", flags.Lookup("base-url"))

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.summaryCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.configCmd())
	root.AddCommand(versionCmd())
	return root
}

func (a *app) initConfig(stderr io.Writer, cfgFile, envFile string) error {
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
	}
	if err := config.ReadFile(a.v, cfgFile); err != nil {
		return err
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Output: logOutput(stderr, cfg.Logging.File),
	})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.log = log
	return nil
}

// logOutput keeps stderr as the sink unless a log file is configured.
func logOutput(stderr io.Writer, file string) io.Writer {
	if file != "" {
		return nil
	}
	return stderr
}

// provider builds the acquisition provider. baseURL overrides api.base_url.
func (a *app) provider(baseURL string) prices.Provider {
	if baseURL == "" {
		baseURL = a.cfg.API.BaseURL
	}
	return prices.NewProvider(prices.Config{
		BaseURL:     baseURL,
		Limit:       a.cfg.API.Limit,
		Timeout:     a.cfg.API.Timeout,
		Credentials: config.NewViperCredentials(a.v),
		Log:         a.log,
	}, a.mock)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pricedash %s\n", version)
		},
	}
}
