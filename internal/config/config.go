package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string
	LogMode   string

	DBDriver string
	DBDSN    string

	BlobBasePath string

	AuthSecret string
	TokenTTL   time.Duration

	AdminEmail    string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	// PreviewCompletion lets learners mark free-preview lessons complete
	// without a paid enrollment.
	PreviewCompletion   bool
	DefaultPassingScore int
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000,http://localhost:5173"
	if mode == ModeOnline {
		defOrigins = "https://classwork.mindengage.ai"
	}
	defLog := "dev"
	if mode == ModeOnline {
		defLog = "prod"
	}
	return Config{
		Mode:                mode,
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		PublicURL:           strings.TrimSuffix(os.Getenv("PUBLIC_URL"), "/"),
		LogMode:             envOr("LOG_MODE", defLog),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", ""),
		BlobBasePath:        envOr("BLOB_BASE_PATH", "./data"),
		AuthSecret:          envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:            envDuration("TOKEN_TTL", 8*time.Hour),
		AdminEmail:          envOr("ADMIN_EMAIL", "admin@classwork.local"),
		AdminPassHash:       os.Getenv("ADMIN_PASS_HASH"),
		CORSOrigins:         csvOr("CORS_ORIGINS", defOrigins),
		PreviewCompletion:   envBool("PREVIEW_COMPLETION", false),
		DefaultPassingScore: envInt("DEFAULT_PASSING_SCORE", 70),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil && d > 0 {
		return d
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
