// Command rubot serves and chats with the university restaurant assistant.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/config"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/logging"
)

var (
	version   = "0.1.0"
	cfgPath   string
	verbose   bool
	cfg       *config.Config
	logCloser io.Closer
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rubot",
		Short: "rubot - university restaurant assistant",
		Long: `rubot answers questions about the university restaurant: opening hours,
prices, the daily menu, campus locations, payment and tickets.

Start the HTTP and WebSocket server:  rubot serve
Chat in the terminal:                 rubot chat
One-shot question:                    rubot ask "Qual o preço do almoço?"`,
		SilenceUsage:       true,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: closeLogging,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.rubot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rubot v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(transcriptCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if verbose {
		cfg.Logging.Level = zerolog.DebugLevel.String()
	}
	logCloser, err = logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	log.Debug().Str("config", configPath()).Msg("configuration loaded")
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}
