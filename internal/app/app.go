// Package app assembles the server: config, logging, the room registry,
// and the websocket transport.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kurubik/snake/internal/config"
	"github.com/Kurubik/snake/internal/net/ws"
	"github.com/Kurubik/snake/internal/room"
	"github.com/Kurubik/snake/logging"
	"github.com/Kurubik/snake/logging/sinks"
)

// Run starts the server and blocks until the context is cancelled or a
// termination signal arrives.
func Run(ctx context.Context) error {
	cfg := config.Load()

	router, jsonFile, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		router.Close(closeCtx)
		if jsonFile != nil {
			jsonFile.Close()
		}
	}()

	counters := ws.NewCounters()
	sessions := ws.NewSessions(router, counters)

	roomCfg := room.DefaultConfig()
	roomCfg.CountdownDelay = cfg.CountdownDelay
	roomCfg.RestartDelay = cfg.RestartDelay
	roomCfg.EmptyTimeout = cfg.EmptyRoomTimeout
	roomCfg.InputRateLimit = cfg.InputRateLimit
	roomCfg.Publisher = router
	rooms := room.NewRegistry(roomCfg, sessions)

	stop := make(chan struct{})
	defer close(stop)
	go rooms.Run(stop)
	go sessions.Run(stop)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(sessions, rooms, router, counters))
	mux.HandleFunc("/health", healthHandler(rooms, sessions, counters))

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func healthHandler(rooms *room.Registry, sessions *ws.Sessions, counters *ws.Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := struct {
			Status   string              `json:"status"`
			Rooms    int                 `json:"rooms"`
			Players  int                 `json:"players"`
			Sessions int                 `json:"sessions"`
			Traffic  ws.CountersSnapshot `json:"traffic"`
		}{
			Status:   "ok",
			Rooms:    rooms.Count(),
			Players:  rooms.PlayerCount(),
			Sessions: sessions.Count(),
			Traffic:  counters.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshot)
	}
}

// buildRouter assembles the async log router from config. The returned
// file, if any, backs the json sink and must outlive the router.
func buildRouter(cfg config.Config) (*logging.Router, *os.File, error) {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = cfg.LogSinks
	logCfg.BufferSize = cfg.LogBufferSize
	logCfg.MinimumSeverity = logging.ParseSeverity(cfg.LogMinSeverity)
	logCfg.JSON.FilePath = cfg.LogJSONPath

	var named []logging.NamedSink
	var jsonFile *os.File
	if logCfg.HasSink(logging.SinkConsole) {
		named = append(named, logging.NamedSink{Name: logging.SinkConsole, Sink: sinks.NewConsoleSink(os.Stdout)})
	}
	if logCfg.HasSink(logging.SinkJSON) {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		jsonFile = file
		named = append(named, logging.NamedSink{Name: logging.SinkJSON, Sink: sinks.NewJSONSink(file, logCfg.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, named)
	if err != nil {
		if jsonFile != nil {
			jsonFile.Close()
		}
		return nil, nil, err
	}
	return router, jsonFile, nil
}
