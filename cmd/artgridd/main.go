package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"artgrid/config"
	"artgrid/core"
	"artgrid/gateway/middleware"
	"artgrid/gateway/routes"
	"artgrid/observability/logging"
	"artgrid/rpc"
	"artgrid/storage"
)

const (
	rpcTokenEnv   = "ARTGRID_RPC_TOKEN"
	authSecretEnv = "ARTGRID_AUTH_SECRET"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "path", *configFile, "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.ServiceName, logging.ParseLevel(cfg.LogLevel))

	admin, err := config.ParseAddress(cfg.AdminAddress)
	if err != nil {
		logger.Error("invalid admin address", "error", err)
		os.Exit(1)
	}
	marketplace, err := config.ParseAddress(cfg.MarketplaceAddress)
	if err != nil {
		logger.Error("invalid marketplace address", "error", err)
		os.Exit(1)
	}
	payee, err := config.ParseAddress(cfg.PayeeAddress)
	if err != nil {
		logger.Error("invalid payee address", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.NodeConfig{
		Admin:       admin,
		Marketplace: marketplace,
		Payee:       payee,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start node", "error", err)
		os.Exit(1)
	}

	rpcToken := firstNonEmpty(os.Getenv(rpcTokenEnv), cfg.RPCToken)
	authSecret := firstNonEmpty(os.Getenv(authSecretEnv), cfg.AuthSecret)

	authenticator := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    authSecret != "",
		HMACSecret: authSecret,
	}, logger)
	gatewayHandler, err := routes.New(routes.Config{
		Node:          node,
		Authenticator: authenticator,
	})
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("starting gateway", "addr", cfg.GatewayAddress)
		if err := http.ListenAndServe(cfg.GatewayAddress, gatewayHandler); err != nil {
			logger.Error("gateway stopped", "error", err)
			os.Exit(1)
		}
	}()

	server := rpc.NewServer(node, rpcToken, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
