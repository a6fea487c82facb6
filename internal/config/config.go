package config

import (
	"errors"
	"io/fs"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	APIBaseURL         string
	WSURL              string
	DatabaseURL        string
	SessionTTL         time.Duration
	PollInterval       time.Duration
	ConfirmTTL         time.Duration
	SessionSweep       time.Duration
	CookieSecure       bool
	RateLimitPerMinute int
	RateLimitBurst     int
	Location           *time.Location
}

// Load reads the environment, after applying a .env file when one exists.
// Variables already set in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}

	port := os.Getenv("PORTAL_PORT")
	if port == "" {
		port = "8090"
	}
	apiBase := strings.TrimRight(readString("PORTAL_API_BASE_URL", "http://localhost:5000"), "/")
	wsURL := os.Getenv("PORTAL_WS_URL")
	if wsURL == "" {
		wsURL = NotificationsURL(apiBase)
	}

	return Config{
		Port:               port,
		APIBaseURL:         apiBase,
		WSURL:              wsURL,
		DatabaseURL:        os.Getenv("DB_DSN"),
		SessionTTL:         time.Duration(readInt("PORTAL_SESSION_TTL_HOURS", 8)) * time.Hour,
		PollInterval:       readDurationSeconds("PORTAL_POLL_SECONDS", 10),
		ConfirmTTL:         readDurationSeconds("PORTAL_CONFIRM_TTL_SECONDS", 300),
		SessionSweep:       readDurationSeconds("PORTAL_SESSION_SWEEP_SECONDS", 600),
		CookieSecure:       readBool("PORTAL_COOKIE_SECURE", false),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 60),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 20),
		Location:           readLocation("PORTAL_TZ", "Asia/Kolkata"),
	}
}

// NotificationsURL derives the backend WebSocket endpoint from its REST base.
func NotificationsURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/ws/notifications"
	return u.String()
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readLocation(key, fallback string) *time.Location {
	name := readString(key, fallback)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: unknown time zone %q, using UTC", name)
		return time.UTC
	}
	return loc
}
