package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-sse-sdk/pkg/sse"
)

func main() {
	var (
		addr          string
		streamPath    string
		keepAlive     time.Duration
		maxClients    int
		enableMetrics bool
		development   bool
	)

	rootCmd := &cobra.Command{
		Use:   "sse-server",
		Short: "Server-sent events broadcast server",
		Long: `sse-server exposes an SSE stream endpoint plus a small REST control
surface for sending events to connected clients:

  GET    <stream-path>                  open an event stream
  POST   /api/broadcast                 broadcast an event to all clients
  POST   /api/clients/{clientID}/events unicast an event to one client
  DELETE /api/clients/{clientID}        disconnect one client
  DELETE /api/clients                   disconnect all clients
  GET    /api/clients/count             current client count`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, streamPath, keepAlive, maxClients, enableMetrics, development)
		},
	}

	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&streamPath, "path", "/events", "SSE stream endpoint path")
	rootCmd.Flags().DurationVar(&keepAlive, "keep-alive", 30*time.Second, "keep-alive interval")
	rootCmd.Flags().IntVar(&maxClients, "max-clients", 100, "maximum concurrent clients (0 = unlimited)")
	rootCmd.Flags().BoolVar(&enableMetrics, "metrics", true, "expose Prometheus metrics on /metrics")
	rootCmd.Flags().BoolVar(&development, "dev", false, "development logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, streamPath string, keepAlive time.Duration, maxClients int, enableMetrics, development bool) error {
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

	opts := []sse.Option{
		sse.WithLogger(logger),
		sse.WithKeepAliveInterval(keepAlive),
		sse.WithMaxClients(maxClients),
		sse.WithConnectHandler(func(clientID string) {
			logger.Info("client connected", logging.Fields{"clientId": clientID})
		}),
	}
	if enableMetrics {
		opts = append(opts, sse.WithMetrics(prometheus.DefaultRegisterer))
	}

	connector := sse.NewConnector(opts...)
	defer func() {
		_ = connector.Close()
	}()

	r := chi.NewRouter()
	r.Get(streamPath, connector.Handler().ServeHTTP)
	r.Post("/api/broadcast", handleBroadcast(connector))
	r.Post("/api/clients/{clientID}/events", handleSendEvent(connector))
	r.Delete("/api/clients/{clientID}", handleDisconnect(connector))
	r.Delete("/api/clients", handleDisconnectAll(connector))
	r.Get("/api/clients/count", handleCount(connector))
	if enableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("sse server listening on %s, streaming at %s", addr, streamPath)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		logger.Info("shutting down", logging.Fields{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing the connector first pushes the close notification frame to
	// every client and unblocks their handlers, so Shutdown can drain.
	_ = connector.Close()
	return srv.Shutdown(shutdownCtx)
}

type eventRequest struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

func handleBroadcast(connector *sse.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		count, err := connector.Broadcast(req.Event, req.Data)
		if err != nil {
			writeConnectorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"delivered": count})
	}
}

func handleSendEvent(connector *sse.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")

		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		confirmation, err := connector.SendEventToClient(clientID, req.Event, req.Data, req.ID)
		if err != nil {
			writeConnectorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": confirmation})
	}
}

func handleDisconnect(connector *sse.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmation, err := connector.DisconnectClient(chi.URLParam(r, "clientID"))
		if err != nil {
			writeConnectorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": confirmation})
	}
}

func handleDisconnectAll(connector *sse.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := connector.DisconnectAll()
		if err != nil {
			writeConnectorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"disconnected": count})
	}
}

func handleCount(connector *sse.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"connected": connector.ConnectedClientCount()})
	}
}

func writeConnectorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sse.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sse.ErrClientNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sse.ErrConnectorClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
