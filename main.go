package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"roomsync/config"
	"roomsync/persist"
	"roomsync/server"
)

// roomsync 入口：启动 HTTP + WebSocket 中继，或以 -replay 离线重建房间状态
func main() {
	var (
		cfgPath string
		addr    string
		replay  string
	)
	flag.StringVar(&cfgPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.StringVar(&replay, "replay", "", "rebuild the named room from data_dir, print it as JSON and exit")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
	}
	if addr != "" {
		cfg.Addr = addr
	}

	if replay != "" {
		if err := runReplay(cfg, replay); err != nil {
			fmt.Fprintf(os.Stderr, "replay: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := server.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer server.SyncLogger()

	if err := run(cfg); err != nil {
		server.Log.Errorf("exit: %v", err)
		server.SyncLogger()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	rm, err := server.NewRoomManager(server.OptionsFromConfig(cfg.Room))
	if err != nil {
		return err
	}
	if n, err := rm.RestoreAll(); err != nil {
		server.Log.Warnf("restore rooms: %v", err)
	} else if n > 0 {
		server.Log.Infof("restored %d rooms from %s", n, cfg.Room.DataDir)
	}
	// 先预创建一个默认房间，便于快速试跑
	if _, _, err := rm.GetOrCreateRoom(cfg.Room.DefaultRoom); err != nil {
		return multierr.Append(err, rm.Close())
	}

	mux := http.NewServeMux()
	rm.Register(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		server.Log.Infof("roomsync listening on %s (tps=%d strict=%v)", cfg.Addr, cfg.Room.TicksPerSecond, cfg.Room.Strict)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-errCh:
	}
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = multierr.Append(err, srv.Shutdown(ctx))
	return multierr.Append(err, rm.Close())
}

func runReplay(cfg config.Config, roomID string) error {
	if cfg.Room.DataDir == "" {
		return errors.New("room.data_dir is not configured")
	}
	res, err := persist.RestoreRoom(cfg.Room.DataDir, roomID, true)
	if err != nil {
		return err
	}
	out := struct {
		Room         string `json:"room"`
		SnapshotTick uint64 `json:"snapshot_tick"`
		LastTick     uint64 `json:"last_tick"`
		Replayed     int    `json:"replayed"`
		Entities     any    `json:"entities"`
	}{roomID, res.SnapshotTick, res.LastTick, res.Replayed, res.State.Entities()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
