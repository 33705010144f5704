package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Debug          bool
	AllowedOrigins []string
	PostgresURL    string
	JWTKey         string
	TokenAge       time.Duration
	CatalogPath    string

	Game    GameConfig
	Sandbox SandboxConfig
}

type GameConfig struct {
	MaxMembers       int
	MaxProblems      int
	CountdownSeconds int
	AbandonedTTL     time.Duration
	SweepInterval    time.Duration
	PingInterval     time.Duration
}

type SandboxConfig struct {
	JavascriptImage string
	PythonImage     string
	CPUs            float64
	MemoryBytes     int64
	PidsLimit       int64
	Timeout         time.Duration
	CompileTimeout  time.Duration
	MaxOutputBytes  int
	MaxLogChars     int
}

var (
	ErrMissingAllowedOrigins = errors.New("missing ALLOWED_ORIGINS")
	ErrMissingPostgresURL    = errors.New("missing POSTGRES_URL")
	ErrMissingJWTKey         = errors.New("missing JWT_KEY")
)

// Load reads a .env file when one exists and builds the configuration from
// the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "5000"),
		Debug:       getEnvAsBool("DEBUG", false),
		PostgresURL: getEnv("POSTGRES_URL", ""),
		JWTKey:      getEnv("JWT_KEY", ""),
		TokenAge:    getEnvAsDuration("TOKEN_AGE", 7*24*time.Hour),
		CatalogPath: getEnv("CATALOG_PATH", ""),
		Game: GameConfig{
			MaxMembers:       getEnvAsInt("ROOM_MAX_MEMBERS", 20),
			MaxProblems:      getEnvAsInt("ROOM_MAX_PROBLEMS", 5),
			CountdownSeconds: getEnvAsInt("ROOM_COUNTDOWN_SECONDS", 5),
			AbandonedTTL:     getEnvAsDuration("ROOM_ABANDONED_TTL", 30*time.Minute),
			SweepInterval:    getEnvAsDuration("ROOM_SWEEP_INTERVAL", time.Minute),
			PingInterval:     getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
		},
		Sandbox: SandboxConfig{
			JavascriptImage: getEnv("DOCKER_JS_IMAGE", "node:20-alpine"),
			PythonImage:     getEnv("DOCKER_PY_IMAGE", "python:3.12-alpine"),
			CPUs:            getEnvAsFloat("DOCKER_EXEC_CPUS", 0.5),
			MemoryBytes:     int64(getEnvAsInt("DOCKER_EXEC_MEMORY_MB", 256)) * 1024 * 1024,
			PidsLimit:       int64(getEnvAsInt("DOCKER_EXEC_PIDS", 128)),
			Timeout:         getEnvAsDuration("DOCKER_EXEC_TIMEOUT", 20*time.Second),
			CompileTimeout:  getEnvAsDuration("DOCKER_COMPILE_TIMEOUT", 1200*time.Millisecond),
			MaxOutputBytes:  getEnvAsInt("DOCKER_MAX_OUTPUT_BYTES", 300*1024),
			MaxLogChars:     getEnvAsInt("DOCKER_MAX_LOG_CHARS", 8*1024),
		},
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	switch {
	case len(cfg.AllowedOrigins) == 0:
		return cfg, ErrMissingAllowedOrigins
	case cfg.PostgresURL == "":
		return cfg, ErrMissingPostgresURL
	case cfg.JWTKey == "":
		return cfg, ErrMissingJWTKey
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
