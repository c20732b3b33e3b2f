package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trellisdb/trellis"
)

// configFile is looked up in the working directory.
const configFile = ".trellis.yaml"

// fileConfig mirrors the optional YAML config; flags override it.
type fileConfig struct {
	Root      string        `yaml:"root"`
	Workspace string        `yaml:"workspace"`
	Actor     string        `yaml:"actor"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	TreeLimit int           `yaml:"tree_limit"`
}

func loadConfig() (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newService assembles a service from config file and flags.
func newService() (*trellis.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if cfg.Root == "" {
		cfg.Root = "./data"
	}
	if workspace != "" {
		cfg.Workspace = workspace
	}
	if actor != "" {
		cfg.Actor = actor
	}
	if cfg.Actor == "" {
		cfg.Actor = "cli"
	}

	opts := []trellis.Option{
		trellis.WithWorkspace(cfg.Workspace),
		trellis.WithActor(cfg.Actor),
		trellis.WithLogger(slog.Default()),
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, trellis.WithCacheTTL(cfg.CacheTTL))
	}
	if cfg.TreeLimit > 0 {
		opts = append(opts, trellis.WithTreeLimit(cfg.TreeLimit))
	}
	return trellis.New(cfg.Root, opts...)
}
