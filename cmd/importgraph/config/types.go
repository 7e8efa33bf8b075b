// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/importgraph/services/importgraph"
	"github.com/AleutianAI/importgraph/services/importgraph/storage"
	"github.com/AleutianAI/importgraph/services/importgraph/telemetry"
)

// Config is the on-disk configuration of the importgraph CLI.
type Config struct {
	// Server: HTTP listener settings for `importgraph serve`
	Server ServerConfig `yaml:"server"`

	// Service: graph limits and query timeouts
	Service importgraph.ServiceConfig `yaml:"service"`

	// Storage: where snapshots are kept
	Storage StorageConfig `yaml:"storage"`

	// Telemetry: trace and metric exporters
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Logging: console and file logs
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// Preload lists import files served as graph PreloadGraphID and
	// reloaded when they change.
	Preload []string `yaml:"preload,omitempty" validate:"dive,required"`

	// Squash lists modules squashed in the preloaded graph.
	Squash []string `yaml:"squash,omitempty" validate:"dive,required"`
}

type StorageConfig struct {
	// Enabled turns on the snapshot endpoints.
	Enabled bool `yaml:"enabled"`

	storage.Config `yaml:",inline"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

// PreloadGraphID is the graph id under which Server.Preload is served.
const PreloadGraphID = "default"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	store := storage.DefaultConfig()
	store.Path = "~/.importgraph/snapshots"

	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            12230,
			ShutdownTimeout: 10 * time.Second,
		},
		Service: importgraph.DefaultServiceConfig(),
		Storage: StorageConfig{
			Enabled: true,
			Config:  store,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
