package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	ImageKit ImageKitConfig
	Webhook  WebhookConfig
}

type AppConfig struct {
	Version     string
	Port        string
	Debug       bool
	Environment string
	BaseUrl     string
	SessionID   string
	ServerID    string
}

type PathsConfig struct {
	BaseDir  string
	Statics  string
	Sessions string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	PostgresDSN     string
	SQLitePath      string
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

type ImageKitConfig struct {
	PublicKey   string
	PrivateKey  string
	URLEndpoint string
}

type WebhookConfig struct {
	RateUpdateURL string
	Secret        string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// Configured reports whether ImageKit credentials are present.
func (c ImageKitConfig) Configured() bool {
	return c.PublicKey != "" && c.PrivateKey != "" && c.URLEndpoint != ""
}

// LoadConfig loads configuration from environment variables.
// Supabase credentials are mandatory: the gateway cannot serve the control
// plane without its entity store.
func LoadConfig() (*Config, error) {
	supabaseURL := getEnv("SUPABASE_URL", "")
	supabaseKey := getEnv("SUPABASE_ANON_KEY", "")
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}

	environment := getEnv("APP_ENV", "")
	if environment == "" {
		// Legacy deployments exported NODE_ENV.
		environment = getEnv("NODE_ENV", "development")
	}

	baseDir := getEnv("APP_BASE_DIR", "storages")
	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Statics:  getEnv("PATH_STATICS", "statics"),
		Sessions: getEnv("PATH_SESSIONS", filepath.Join(baseDir, "sessions")),
		Storages: baseDir,
	}

	debug := getEnvBool("APP_DEBUG", environment == "development")

	appCfg := AppConfig{
		Version:     "v1.4.0",
		Port:        getEnv("PORT", "3000"),
		Debug:       debug,
		Environment: environment,
		BaseUrl:     getEnv("APP_URL", ""),
		SessionID:   getEnv("WHATSAPP_SESSION_ID", "default"),
		ServerID:    getEnv("SERVER_ID", ""),
	}

	dbDriver := "sqlite"
	postgresDSN := getEnv("SUPABASE_DB_URL", "")
	if postgresDSN != "" {
		dbDriver = "postgres"
	}
	dbCfg := DatabaseConfig{
		Driver:          dbDriver,
		PostgresDSN:     postgresDSN,
		SQLitePath:      filepath.Join(pathsCfg.Storages, "gateway.db"),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "wagw:"),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Supabase: SupabaseConfig{URL: supabaseURL, AnonKey: supabaseKey},
		ImageKit: ImageKitConfig{
			PublicKey:   getEnv("IMAGEKIT_PUBLIC_KEY", ""),
			PrivateKey:  getEnv("IMAGEKIT_PRIVATE_KEY", ""),
			URLEndpoint: getEnv("IMAGEKIT_URL_ENDPOINT", ""),
		},
		Webhook: WebhookConfig{
			RateUpdateURL: getEnv("RATE_WEBHOOK_URL", ""),
			Secret:        getEnv("RATE_WEBHOOK_SECRET", ""),
		},
	}

	if err := os.MkdirAll(pathsCfg.Storages, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	Global = cfg
	return cfg, nil
}
