// Package config loads service configuration from an optional YAML file, a
// local .env file, and SURVEYSCOPE_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataFile   string `yaml:"data_file"`
	// TestMode disables privacy suppression. Leave off outside development.
	TestMode bool `yaml:"test_mode"`
	// DownloadsPerSecond is the token-bucket refill rate for the download
	// endpoints. Zero disables rate limiting.
	DownloadsPerSecond float64 `yaml:"downloads_per_second"`
	DownloadBurst      int     `yaml:"download_burst"`

	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
}

// Storage selects and configures the record store.
type Storage struct {
	// Driver is one of memory, sqlite, postgres.
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	DSN        string `yaml:"dsn"`
	// Ephemeral rebuilds the store from source on every boot (demo mode,
	// the default). When false the store only ingests if empty.
	Ephemeral bool `yaml:"ephemeral"`
}

// Blob configures the export artifact store.
type Blob struct {
	Driver      string `yaml:"driver"`
	Root        string `yaml:"root"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		DataFile:           "data/sample_plfs.csv",
		TestMode:           false,
		DownloadsPerSecond: 5,
		DownloadBurst:      10,
		Storage: Storage{
			Driver:     "sqlite",
			SQLitePath: "surveyscope.db",
			Ephemeral:  true,
		},
		Blob: Blob{
			Driver: "fs",
			Root:   "exportdata",
		},
	}
}

// Load assembles the configuration. path may be empty, in which case only
// defaults, .env and environment variables apply. A named but missing config
// file is an error; a missing .env is not.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if raw, err := os.ReadFile("surveyscope.yaml"); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse surveyscope.yaml: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read surveyscope.yaml: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "SURVEYSCOPE_LISTEN_ADDR")
	setString(&cfg.DataFile, "SURVEYSCOPE_DATA_FILE")
	setBool(&cfg.TestMode, "SURVEYSCOPE_TEST_MODE")
	setString(&cfg.Storage.Driver, "SURVEYSCOPE_STORAGE_DRIVER")
	setString(&cfg.Storage.SQLitePath, "SURVEYSCOPE_SQLITE_PATH")
	setString(&cfg.Storage.DSN, "SURVEYSCOPE_POSTGRES_DSN")
	setBool(&cfg.Storage.Ephemeral, "SURVEYSCOPE_EPHEMERAL")
	setString(&cfg.Blob.Driver, "SURVEYSCOPE_BLOB_DRIVER")
	setString(&cfg.Blob.Root, "SURVEYSCOPE_BLOB_ROOT")
	setString(&cfg.Blob.S3Bucket, "SURVEYSCOPE_BLOB_S3_BUCKET")
	setString(&cfg.Blob.S3Region, "SURVEYSCOPE_BLOB_S3_REGION")
	setString(&cfg.Blob.S3Endpoint, "SURVEYSCOPE_BLOB_S3_ENDPOINT")
	setBool(&cfg.Blob.S3PathStyle, "SURVEYSCOPE_BLOB_S3_PATH_STYLE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "", "fs", "memory", "s3":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.S3Bucket == "" {
		return fmt.Errorf("blob driver s3 requires s3_bucket")
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file required")
	}
	return nil
}
