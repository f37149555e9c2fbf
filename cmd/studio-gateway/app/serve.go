// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/config"
	"github.com/studiomcp/gateway/pkg/gateway/runstatus"
	"github.com/studiomcp/gateway/pkg/gateway/server"
	"github.com/studiomcp/gateway/pkg/gateway/services"
	"github.com/studiomcp/gateway/pkg/gateway/session"
	"github.com/studiomcp/gateway/pkg/gateway/tasks"
	"github.com/studiomcp/gateway/pkg/gateway/tools"
	"github.com/studiomcp/gateway/pkg/logger"
	"github.com/studiomcp/gateway/pkg/telemetry"
)

// getVersion returns the version string (will be set at build time)
func getVersion() string {
	// This will be replaced with actual version info using ldflags
	return "dev"
}

// runServe implements the serve command logic
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	configPath := viper.GetString("config")

	if configPath == "" {
		return fmt.Errorf("no configuration file specified, use --config flag")
	}

	logger.Infof("Loading configuration from: %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	logger.Infof("Configuration loaded and validated successfully")
	logger.Infof("  Name: %s", cfg.Name)
	logger.Infof("  Platform API: %s", cfg.PlatformAPI.BaseURL)

	keyStore, err := auth.NewFileKeyStore(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load API key file: %w", err)
	}

	client, err := services.NewHTTPClient(services.HTTPClientConfig{
		BaseURL:      cfg.PlatformAPI.BaseURL,
		ServiceToken: cfg.PlatformAPI.ServiceToken,
		Timeout:      cfg.PlatformAPI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create platform API client: %w", err)
	}

	log := logger.Get()

	// Run-status resolver and background-task engine share the platform
	// client; both outlive individual sessions.
	resolver := runstatus.New(client, client, client, client.HumanInputs(), log)
	defer resolver.Close()

	taskStore := tasks.NewStore(0)
	defer taskStore.Stop()
	taskEngine := tasks.NewEngine(taskStore, resolver, client, log,
		tasks.WithTaskTTL(cfg.TaskTTL))

	emitter := audit.NewEmitter(client.AuditStore(), log)
	defer emitter.Close()

	var metrics *telemetry.Metrics
	if cfg.Metrics {
		metrics = telemetry.NewMetrics()
	}

	var storage session.Storage
	if cfg.Redis != nil {
		logger.Infof("Using Redis session registry at %s", cfg.Redis.Addr)
		storage, err = session.NewRedisStorage(ctx, session.RedisConfig{
			Addr:      cfg.Redis.Addr,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.SessionTTL,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect session registry: %w", err)
		}
	}

	srv, err := server.New(&server.Config{
		Name:           cfg.Name,
		Version:        cfg.Version,
		Host:           cfg.Host,
		Port:           cfg.Port,
		EndpointPath:   cfg.EndpointPath,
		SessionTTL:     cfg.SessionTTL,
		AuthMiddleware: auth.Middleware(keyStore),
		SessionStorage: storage,
		Metrics:        metrics,
	}, &tools.Deps{
		Services:  client.Deps(),
		Tasks:     taskEngine,
		RunStatus: resolver,
		Audit:     emitter,
		Metrics:   metrics,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create gateway server: %w", err)
	}

	// Start server (blocks until shutdown signal)
	logger.Infof("Starting Studio MCP Gateway at %s%s", srv.Address(), cfg.EndpointPath)
	return srv.Start(ctx)
}
