package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/openalpha/cardex/api"
	"github.com/openalpha/cardex/engine"
)

// NewRootCmd creates the root command for cardexd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cardexd",
		Short: "Cardex - card game options exchange",
		Long: `Cardexd runs a multi-room matching service for a card based
options trading game. Players connect over WebSocket, trade instruments
derived from dealt card piles, and settle against the pile values.`,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	return rootCmd
}

func serveCmd() *cobra.Command {
	var (
		listenAddr string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the exchange server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)

			eng := engine.New(logger)
			srv := api.NewServer(api.Config{ListenAddr: listenAddr}, eng, logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go eng.Run(ctx)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(ctx)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			statsTicker := time.NewTicker(30 * time.Second)
			defer statsTicker.Stop()

			logger.Info("cardexd running", "addr", listenAddr)
			for {
				select {
				case sig := <-sigCh:
					logger.Info("received signal", "signal", sig.String())
					cancel()
					return <-errCh
				case err := <-errCh:
					cancel()
					return err
				case <-statsTicker.C:
					st := eng.Stats()
					logger.Info("stats",
						"connections", st.Connections.Load(),
						"commands", st.CommandsProcessed.Load(),
						"rejected_frames", st.FramesRejected.Load(),
					)
				}
			}
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", api.DefaultConfig().ListenAddr, "HTTP listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("cardexd v0.1.0")
		},
	}
}

func newLogger(level string) log.Logger {
	opts := []log.Option{}
	if filter, err := log.ParseLogLevel(level); err == nil {
		opts = append(opts, log.FilterOption(filter))
	}
	return log.NewLogger(os.Stderr, opts...)
}
