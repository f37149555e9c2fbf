// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the studio-gateway command-line
// application.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studiomcp/gateway/pkg/gateway/config"
	"github.com/studiomcp/gateway/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "studio-gateway",
	DisableAutoGenTag: true,
	Short:             "Studio MCP Gateway - Expose the workflow platform to AI agents over MCP",
	Long: `Studio MCP Gateway is a multi-tenant server that exposes the Studio
workflow-automation platform (workflows, runs, components, artifacts,
schedules, secrets, human-input approvals) as a Model Context Protocol
surface consumable by external AI agents. It provides:

- A typed MCP tool catalog over streamable HTTP
- Bearer API key authentication with per-key capability matrices
- Session identity binding and hijack prevention
- Background tasks for long-running workflow runs
- Tenant scoping on every backing-service call
- Best-effort audit logging of security-relevant actions`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the studio-gateway CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to gateway configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("Error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// newServeCmd creates the serve command for starting the gateway.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Studio MCP Gateway",
		Long: `Start the Studio MCP Gateway and listen for MCP client connections.

The server reads the configuration file specified by --config, authenticates
clients with bearer API keys, and exposes the workflow platform's tool
catalog on the configured streamable-HTTP endpoint.`,
		RunE: runServe,
	}
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for studio-gateway",
		Run: func(_ *cobra.Command, _ []string) {
			logger.Infof("studio-gateway version: %s", getVersion())
		},
	}
}

// newValidateCmd creates the validate command for checking configuration.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the gateway configuration file for syntax and semantic errors.

This command checks:
- YAML syntax validity
- Required fields presence
- Key file and platform API configuration
- Optional Redis session registry configuration`,
		RunE: func(_ *cobra.Command, _ []string) error {
			configPath := viper.GetString("config")
			if configPath == "" {
				return fmt.Errorf("no configuration file specified, use --config flag")
			}

			logger.Infof("Validating configuration: %s", configPath)

			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Errorf("Failed to load configuration: %v", err)
				return fmt.Errorf("configuration loading failed: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				logger.Errorf("Configuration validation failed: %v", err)
				return fmt.Errorf("validation failed: %w", err)
			}

			logger.Infof("✓ Configuration is valid")
			logger.Infof("  Name: %s", cfg.Name)
			logger.Infof("  Endpoint: %s:%d%s", cfg.Host, cfg.Port, cfg.EndpointPath)
			logger.Infof("  Platform API: %s", cfg.PlatformAPI.BaseURL)
			logger.Infof("  Session registry: %s", func() string {
				if cfg.Redis != nil {
					return "redis (" + cfg.Redis.Addr + ")"
				}
				return "in-memory"
			}())
			return nil
		},
	}
}
