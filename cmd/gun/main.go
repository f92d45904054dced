// Command gun runs a Gun relay: a super-peer that accepts inbound
// WebSocket connections, dials configured peers, and serves /status and
// /metrics. Grounded on the teacher's cmd/server/main.go startup-banner
// style and cmd/loadtest/main.go's flag.* usage.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gundb/gun-go/internal/config"
	"github.com/gundb/gun-go/internal/core"
	"github.com/gundb/gun-go/internal/mesh"
	"github.com/gundb/gun-go/internal/metrics"
	"github.com/gundb/gun-go/internal/relayhttp"
	"github.com/gundb/gun-go/internal/storage"
	"github.com/gundb/gun-go/internal/transport/wsock"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (default: gun.yaml via GUN_CONFIG_PATH)")
	peersFlag := flag.String("peers", "", "comma-separated WebSocket peer URLs to dial on start")
	port := flag.String("port", "", "listen port when -super-peer is set (overrides config)")
	superPeer := flag.Bool("super-peer", false, "accept inbound peer connections and serve /status, /metrics")
	storagePath := flag.String("storage", "", "directory (or bbolt file) for persistent storage (overrides config)")
	radisk := flag.Bool("radisk", false, "use the embedded bbolt adapter at -storage (file-per-soul needs local_storage in the config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}
	applyFlagOverrides(cfg, *peersFlag, *port, *storagePath, *superPeer, *radisk)

	slog.Info("🔫 starting gun relay", "env", cfg.Env, "super_peer", cfg.SuperPeer)

	store, err := buildStorage(cfg)
	if err != nil {
		slog.Error("failed to open storage adapter", "err", err)
		return 1
	}

	var c *core.GunCore
	if store != nil {
		c = core.NewWithStorage(store)
	} else {
		c = core.New()
	}
	defer c.Close()

	meshOpt := mesh.DefaultOptions()
	meshOpt.MaxMessageBytes = cfg.Mesh.MaxMessageBytes
	meshOpt.BatchSize = cfg.Mesh.BatchSize
	meshOpt.Retry = cfg.Mesh.Retry
	m := mesh.New(c.RandomID, c.Graph, c.Events, meshOpt)
	c.AttachMesh(m)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		dedup := mesh.NewRedisDedup(rdb, "", 9*time.Second)
		m.SetDedup(mesh.NewRedisDedupAdapter(dedup))
		slog.Info("mesh dedup backed by redis", "addr", cfg.Redis.Addr)
	}

	mtr := metrics.New()
	go reportMeshMetrics(m, mtr)

	for _, url := range cfg.Peers {
		if _, err := wsock.Dial(url, m, meshOpt.Retry); err != nil {
			slog.Error("failed to dial peer", "url", url, "err", err)
		}
	}

	if !cfg.SuperPeer {
		slog.Info("running embedded (no listener); peers dialed, awaiting shutdown signal")
		select {}
	}

	srv := relayhttp.New(m)
	srv.MountMetrics()

	addr := fmt.Sprintf(":%s", cfg.Port)
	if err := srv.ListenAndServe(addr); err != nil {
		slog.Error("relay server exited", "err", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("GUN_CONFIG_PATH")
	}
	if path == "" {
		return config.Get(), nil
	}
	return config.Load(path)
}

func applyFlagOverrides(cfg *config.Config, peersCSV, port, storagePath string, superPeer, radisk bool) {
	if peersCSV != "" {
		cfg.Peers = append(cfg.Peers, splitNonEmpty(peersCSV)...)
	}
	if port != "" {
		cfg.Port = port
	}
	if storagePath != "" {
		cfg.StoragePath = storagePath
	}
	if superPeer {
		cfg.SuperPeer = true
	}
	if radisk {
		cfg.Radisk = true
	}
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func buildStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StoragePath == "" {
		return nil, nil
	}
	if strings.HasPrefix(cfg.StoragePath, "postgres://") {
		return storage.NewPostgres(cfg.StoragePath)
	}
	if cfg.Radisk {
		return storage.NewBolt(cfg.StoragePath)
	}
	if cfg.LocalStorage {
		return storage.NewFile(cfg.StoragePath)
	}
	return nil, nil
}

func reportMeshMetrics(m *mesh.Mesh, mtr *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		mtr.SetPeersConnected(m.Near())
	}
}
