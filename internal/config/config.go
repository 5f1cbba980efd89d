// Package config loads the engine configuration from a YAML file with
// environment overrides.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the engine configuration.
type Config struct {
	Env         string `yaml:"env" env:"KITTING_ENV" env-default:"prod"`
	StoragePath string `yaml:"storage_path" env:"KITTING_STORAGE_PATH" env-default:"kitting.db"`
	HTTPServer  `yaml:"http_server"`

	// InventoryURL points at the external inventory service. Empty runs the
	// engine with the in-memory gateway, for demos and local development.
	InventoryURL     string        `yaml:"inventory_url" env:"KITTING_INVENTORY_URL"`
	InventoryTimeout time.Duration `yaml:"inventory_timeout" env-default:"5s"`

	// CountInTransit includes in-transit quantity in net availability.
	CountInTransit bool `yaml:"count_in_transit" env-default:"false"`

	// DataDir holds CSV exports of the collaborator reference data (parts,
	// BOM, work orders, locations, stock). Empty starts the engine with no
	// reference data loaded.
	DataDir string `yaml:"data_dir" env:"KITTING_DATA_DIR"`

	AllowedOrigins []string `yaml:"allowed_origins" env-default:"http://localhost:5173"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	Address     string        `yaml:"address" env:"KITTING_ADDRESS" env-default:"localhost:4010"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustConfig loads the configuration or exits. The path comes from
// KITTING_CONFIG, falling back to ./config/local.yaml; a missing file means
// defaults plus environment only.
func MustConfig() *Config {
	configPath := os.Getenv("KITTING_CONFIG")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
