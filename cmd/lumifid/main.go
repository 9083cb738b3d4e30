package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lumifi/config"
	"lumifi/core"
	"lumifi/crypto"
	"lumifi/native/common"
	"lumifi/native/ico"
	"lumifi/observability"
	"lumifi/observability/logging"
	"lumifi/rpc"
	"lumifi/storage"
)

const nodePassEnv = "LUMIFI_NODE_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LUMIFI_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("lumifid", env, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	db, err := openDatabase(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	privKey, err := crypto.LoadFromKeystore(cfg.NodeKeystorePath, os.Getenv(nodePassEnv))
	if err != nil {
		panic(fmt.Sprintf("Failed to load node key: %v", err))
	}
	nodeAddr := privKey.PubKey().Address()

	node := core.NewNode(db)
	if cfg.SaleIDDerivation == "derived" {
		node.SetIDStrategy(ico.DerivedID)
	}
	if len(cfg.PausedModules) > 0 {
		node.SetPauses(common.NewPauseSet(cfg.PausedModules...))
	}

	token := strings.TrimSpace(os.Getenv(cfg.RPCTokenEnv))
	if token == "" {
		logger.Warn("rpc admin token not set; administrative methods disabled", "env", cfg.RPCTokenEnv)
	}
	server := rpc.NewServer(node, token, logger)

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Method(http.MethodPost, "/", server)
	router.Handle("/metrics", observability.MetricsHandler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting ledger node",
		"network", cfg.NetworkName,
		"address", nodeAddr.String(),
		"rpc", cfg.RPCAddress,
		"backend", cfg.StorageBackend,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
		}
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewSQLiteDB(filepath.Join(cfg.DataDir, "ledger.db"))
	default:
		return storage.NewLevelDB(cfg.DataDir)
	}
}
