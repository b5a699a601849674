package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	SEOAPI    SEOAPIConfig    `yaml:"seo_api"`
	Telephony TelephonyConfig `yaml:"telephony"`
	Video     VideoConfig     `yaml:"video"`
	Tracking  TrackingConfig  `yaml:"tracking"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the bind host, with environment variable override.
// On containers we usually want 0.0.0.0 regardless of config.yaml.
func (c ServerConfig) GetHost() string {
	if h := os.Getenv("SERVER_HOST"); h != "" {
		return h
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds password/session authentication configuration
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	TokenTTLHours  int    `yaml:"token_ttl_hours"`
	BcryptCost     int    `yaml:"bcrypt_cost"`
	MaxLoginPerMin int    `yaml:"max_login_per_min"`
}

// TokenTTL returns the session token lifetime as a duration
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// StorageConfig holds S3 media storage configuration
type StorageConfig struct {
	S3Bucket      string `yaml:"s3_bucket"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	PresignTTLMin int    `yaml:"presign_ttl_minutes"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// PresignTTL returns the presigned URL lifetime as a duration
func (c StorageConfig) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLMin) * time.Minute
}

// SEOAPIConfig holds credentials and limits for the rank tracking API
type SEOAPIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	RateBurst      int     `yaml:"rate_burst"`
	UnitsPerLookup int     `yaml:"units_per_lookup"`
}

// Timeout returns the request timeout as a duration
func (c SEOAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TelephonyConfig holds the phone provisioning provider credentials
type TelephonyConfig struct {
	BaseURL        string `yaml:"base_url"`
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

// Timeout returns the request timeout as a duration
func (c TelephonyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// VideoConfig holds video pipeline settings
type VideoConfig struct {
	StagingDir          string `yaml:"staging_dir"`
	FFmpegPath          string `yaml:"ffmpeg_path"`
	FFprobePath         string `yaml:"ffprobe_path"`
	Workers             int    `yaml:"workers"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxAttempts         int    `yaml:"max_attempts"`
	MaxUploadMB         int    `yaml:"max_upload_mb"`
}

// PollInterval returns the queue poll interval as a duration
func (c VideoConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// TrackingConfig holds keyword rank tracking schedule settings
type TrackingConfig struct {
	IntervalHours   int `yaml:"interval_hours"`
	WebsiteParallel int `yaml:"website_parallel"`
	BatchSize       int `yaml:"batch_size"`
}

// Interval returns the tracking cycle interval as a duration
func (c TrackingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Auth.MaxLoginPerMin == 0 {
		cfg.Auth.MaxLoginPerMin = 10
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Storage.PresignTTLMin == 0 {
		cfg.Storage.PresignTTLMin = 60
	}
	if cfg.SEOAPI.BaseURL == "" {
		cfg.SEOAPI.BaseURL = "https://api.dataforseo.com"
	}
	if cfg.SEOAPI.TimeoutSeconds == 0 {
		cfg.SEOAPI.TimeoutSeconds = 30
	}
	if cfg.SEOAPI.RatePerSecond == 0 {
		cfg.SEOAPI.RatePerSecond = 5
	}
	if cfg.SEOAPI.RateBurst == 0 {
		cfg.SEOAPI.RateBurst = 10
	}
	if cfg.SEOAPI.UnitsPerLookup == 0 {
		cfg.SEOAPI.UnitsPerLookup = 10
	}
	if cfg.Telephony.BaseURL == "" {
		cfg.Telephony.BaseURL = "https://api.twilio.com"
	}
	if cfg.Telephony.TimeoutSeconds == 0 {
		cfg.Telephony.TimeoutSeconds = 30
	}
	if cfg.Video.StagingDir == "" {
		cfg.Video.StagingDir = "/tmp/rankdesk-videos"
	}
	if cfg.Video.FFmpegPath == "" {
		cfg.Video.FFmpegPath = "ffmpeg"
	}
	if cfg.Video.FFprobePath == "" {
		cfg.Video.FFprobePath = "ffprobe"
	}
	if cfg.Video.Workers == 0 {
		cfg.Video.Workers = 2
	}
	if cfg.Video.PollIntervalSeconds == 0 {
		cfg.Video.PollIntervalSeconds = 5
	}
	if cfg.Video.MaxAttempts == 0 {
		cfg.Video.MaxAttempts = 3
	}
	if cfg.Video.MaxUploadMB == 0 {
		cfg.Video.MaxUploadMB = 512
	}
	if cfg.Tracking.IntervalHours == 0 {
		cfg.Tracking.IntervalHours = 24
	}
	if cfg.Tracking.WebsiteParallel == 0 {
		cfg.Tracking.WebsiteParallel = 4
	}
	if cfg.Tracking.BatchSize == 0 {
		cfg.Tracking.BatchSize = 100
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MEDIA_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("MEDIA_S3_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("SEO_API_BASE_URL"); v != "" {
		cfg.SEOAPI.BaseURL = v
	}
	if v := os.Getenv("SEO_API_UNITS_PER_LOOKUP"); v != "" {
		// Ignore parse errors; the config.yaml value stays in effect.
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SEOAPI.UnitsPerLookup = n
		}
	}
	if v := os.Getenv("TELEPHONY_ACCOUNT_SID"); v != "" {
		cfg.Telephony.AccountSID = v
	}
	if v := os.Getenv("TELEPHONY_AUTH_TOKEN"); v != "" {
		cfg.Telephony.AuthToken = v
	}
	if v := os.Getenv("TELEPHONY_WEBHOOK_SECRET"); v != "" {
		cfg.Telephony.WebhookSecret = v
	}

	return cfg, nil
}
