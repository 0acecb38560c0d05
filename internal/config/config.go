package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2380
	defaultEnv        = "development"
	defaultRedisURL   = "redis://localhost:6379/0"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "lingokit"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultBackupDir  = "backups"
)

// Load reads and validates the YAML config at path. A missing file yields the
// defaults (development setup).
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}

	db := &cfg.Database
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Password == "" {
		db.Password = defaultDBPassword
	}
	if db.Name == "" {
		db.Name = defaultDBName
	}
	if db.Charset == "" {
		db.Charset = defaultDBCharset
	}
	if db.Loc == "" {
		db.Loc = defaultDBLoc
	}

	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}

	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = defaultBackupDir
	}

	p := &cfg.Pipeline
	if p.CacheTTL <= 0 {
		p.CacheTTL = time.Hour
	}
	if p.LastGoodTTL <= 0 {
		p.LastGoodTTL = 24 * time.Hour
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = 24 * time.Hour
	}
	if p.MaxHops <= 0 || p.MaxHops > 2 {
		p.MaxHops = 2
	}
	if p.ExpandBudget <= 0 {
		p.ExpandBudget = 300 * time.Millisecond
	}
	if p.RecentErrorsCap <= 0 {
		p.RecentErrorsCap = 20
	}
	if p.SessionSummariesCap <= 0 {
		p.SessionSummariesCap = 10
	}
	if p.ProfileRetentionDays <= 0 {
		p.ProfileRetentionDays = 30
	}
	if p.ExerciseThreshold <= 0 {
		p.ExerciseThreshold = 3
	}
	if p.ObserverRetries <= 0 {
		p.ObserverRetries = 3
	}
	if p.FingerprintTags <= 0 {
		p.FingerprintTags = 5
	}
	if p.Tier1Timeout <= 0 {
		p.Tier1Timeout = 30 * time.Second
	}
	if p.Tier2Timeout <= 0 {
		p.Tier2Timeout = 10 * time.Second
	}
	if p.Tier2MinConfidence <= 0 {
		p.Tier2MinConfidence = 0.5
	}
}

// DSN assembles the MySQL DSN from either the explicit dsn field or the
// discrete host/port fields.
func (c *AppConfig) DSN() string {
	if strings.TrimSpace(c.Database.DSN) != "" {
		return c.Database.DSN
	}
	db := c.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, db.Charset, db.Loc)
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.ToLower(strings.TrimSpace(c.Env)) != "production"
}

// ActiveProvider returns the first enabled AI provider, with the model
// override applied when non-empty.
func (c AIConfig) ActiveProvider(modelOverride string) *AIProvider {
	pick := func(p AIProvider) *AIProvider {
		selected := p
		if strings.TrimSpace(modelOverride) != "" {
			selected.DefaultModel = modelOverride
		}
		return &selected
	}
	for _, p := range c.Providers {
		if p.Enabled {
			return pick(p)
		}
	}
	return nil
}
