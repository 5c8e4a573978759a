package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-sse-sdk/pkg/sse"
)

func main() {
	var (
		url               string
		autoReconnect     bool
		reconnectInterval time.Duration
		connectTimeout    time.Duration
		maxEvents         int
		development       bool
	)

	rootCmd := &cobra.Command{
		Use:          "sse-client",
		Short:        "Subscribe to a remote server-sent events stream",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(url, autoReconnect, reconnectInterval, connectTimeout, maxEvents, development)
		},
	}

	rootCmd.Flags().StringVar(&url, "url", "", "SSE endpoint URL (required)")
	rootCmd.Flags().BoolVar(&autoReconnect, "auto-reconnect", false, "reconnect automatically after disconnects")
	rootCmd.Flags().DurationVar(&reconnectInterval, "reconnect-interval", 5*time.Second, "wait between reconnect attempts")
	rootCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 30*time.Second, "connection establishment timeout")
	rootCmd.Flags().IntVar(&maxEvents, "max-events", 0, "stop after receiving this many events (0 = unlimited)")
	rootCmd.Flags().BoolVar(&development, "dev", false, "development logging")
	_ = rootCmd.MarkFlagRequired("url")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(url string, autoReconnect bool, reconnectInterval, connectTimeout time.Duration, maxEvents int, development bool) error {
	var (
		logger *logging.Logger
		err    error
	)
	if development {
		logger, err = logging.NewDevelopment()
	} else {
		logger, err = logging.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	listener := sse.NewListener(url,
		sse.WithListenerLogger(logger),
		sse.WithAutoReconnect(autoReconnect),
		sse.WithReconnectInterval(reconnectInterval),
		sse.WithConnectTimeout(connectTimeout),
		sse.WithMaxEvents(maxEvents),
		sse.WithEventHandler(func(ev sse.Event) {
			logger.Info("event", logging.Fields{
				"name": ev.Name,
				"data": ev.Data,
				"id":   ev.ID,
			})
		}),
	)

	if err := listener.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-listener.Done():
	case sig := <-sigCh:
		logger.Info("stopping", logging.Fields{"signal": sig.String()})
		listener.Stop()
	}

	logger.Infof("done, received %d events", listener.ReceivedEvents())
	return nil
}
