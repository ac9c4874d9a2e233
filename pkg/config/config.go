package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App  AppConfig
	Data DataConfig
	CORS CORSConfig
	Cron CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Data.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHARMALINE_APP_ENV" default:"dev"`
	Port         string `envconfig:"PHARMALINE_APP_PORT" default:"5001"`
	LogLevel     string `envconfig:"PHARMALINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMALINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DataConfig locates the flat-file state: the two JSON collections, the image
// root served as static files, and the spool directory for multipart uploads.
type DataConfig struct {
	Root           string        `envconfig:"PHARMALINE_DATA_ROOT" default:"."`
	MedicinesPath  string        `envconfig:"PHARMALINE_DATA_JSON_PATH" default:"src/data/medicines.json"`
	CategoriesPath string        `envconfig:"PHARMALINE_CATEGORIES_JSON_PATH" default:"src/data/categories.json"`
	ImageRoot      string        `envconfig:"PHARMALINE_IMAGE_ROOT" default:"public/medicines"`
	UploadTempDir  string        `envconfig:"PHARMALINE_UPLOAD_TMP_DIR" default:"uploads/tmp"`
	PublicBasePath string        `envconfig:"PHARMALINE_PUBLIC_BASE_PATH" default:"/medicines"`
	PurgeRetention time.Duration `envconfig:"PHARMALINE_PURGE_RETENTION" default:"168h"`
	MaxUploadMB    int           `envconfig:"PHARMALINE_MAX_UPLOAD_MB" default:"25"`
}

// resolvePaths anchors every relative path under Root once, at load time, so
// no component ever re-derives locations from the working directory.
func (d *DataConfig) resolvePaths() error {
	if d.Root == "" {
		d.Root = "."
	}
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return fmt.Errorf("resolving data root: %w", err)
	}
	d.Root = root
	d.MedicinesPath = d.anchor(d.MedicinesPath)
	d.CategoriesPath = d.anchor(d.CategoriesPath)
	d.ImageRoot = d.anchor(d.ImageRoot)
	d.UploadTempDir = d.anchor(d.UploadTempDir)
	if d.PublicBasePath == "" {
		d.PublicBasePath = "/medicines"
	}
	d.PublicBasePath = "/" + strings.Trim(d.PublicBasePath, "/")
	if d.PurgeRetention <= 0 {
		d.PurgeRetention = 168 * time.Hour
	}
	return nil
}

func (d DataConfig) anchor(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PHARMALINE_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:5174,http://localhost:3000"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PHARMALINE_CRON_INTERVAL" default:"24h"`
}
