package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	Database       DatabaseRuntimeConfig `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Admin          AdminConfig           `yaml:"admin"`
	AI             AIConfig              `yaml:"ai"`
	Pipeline       PipelineConfig        `yaml:"pipeline"`
	Backup         BackupConfig          `yaml:"backup"`
}

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

// AdminConfig seeds the owner account on first boot.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type AIConfig struct {
	Providers     []AIProvider `yaml:"providers"`
	ChatModel     string       `yaml:"chat_model"`     // overrides provider default for turn replies
	ExerciseModel string       `yaml:"exercise_model"` // overrides provider default for exercise generation
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // OpenAI | OpenAI-Compatible | Anthropic
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// PipelineConfig carries every tunable of the response pipeline.
type PipelineConfig struct {
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	LastGoodTTL          time.Duration `yaml:"last_good_ttl"`
	SessionTTL           time.Duration `yaml:"session_ttl"`
	MaxHops              int           `yaml:"max_hops"`
	ExpandBudget         time.Duration `yaml:"expand_budget"`
	RecentErrorsCap      int           `yaml:"recent_errors_cap"`
	SessionSummariesCap  int           `yaml:"session_summaries_cap"`
	ProfileRetentionDays int           `yaml:"profile_retention_days"`
	ExerciseThreshold    int           `yaml:"exercise_threshold"`
	ObserverRetries      int           `yaml:"observer_retries"`
	FingerprintTags      int           `yaml:"fingerprint_tags"`
	Tier1Timeout         time.Duration `yaml:"tier1_timeout"`
	Tier2Timeout         time.Duration `yaml:"tier2_timeout"`
	Tier2MinConfidence   float64       `yaml:"tier2_min_confidence"`
}

type BackupConfig struct {
	Enable bool     `yaml:"enable"`
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Enable    bool   `yaml:"enable"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}
