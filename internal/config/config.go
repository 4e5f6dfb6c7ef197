package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by WONDERGATE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("WONDERGATE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// APIKey returns the static key that guards /v1. When unset the
// authenticated routes refuse every request.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// FailureThreshold returns how many failed credibility checks reject an
// observation. Defaults to 2.
func FailureThreshold() int {
	n, err := strconv.Atoi(os.Getenv("FAILURE_THRESHOLD"))
	if err != nil || n <= 0 {
		return 2
	}
	return n
}

// ReinforcementRate returns the confidence gain rate per re-observation.
// Defaults to 0.1.
func ReinforcementRate() float32 {
	return envFloat32("REINFORCEMENT_RATE", 0.1)
}

// ReliabilityStep returns the score nudge applied to a source per admission
// decision. Defaults to 0.05.
func ReliabilityStep() float32 {
	return envFloat32("RELIABILITY_STEP", 0.05)
}

// ReliabilityFloor returns the score below which the floor check fails a
// source outright. Defaults to 0.2.
func ReliabilityFloor() float32 {
	return envFloat32("RELIABILITY_FLOOR", 0.2)
}

// NoveltyMaxZ returns the magnitude z-score above which the novelty check
// fails an observation. Defaults to 3.0.
func NoveltyMaxZ() float64 {
	z, err := strconv.ParseFloat(os.Getenv("NOVELTY_MAX_ZSCORE"), 64)
	if err != nil || z <= 0 {
		return 3.0
	}
	return z
}

// MatchThreshold returns the minimum embedding similarity treated as a
// re-statement of an existing wonder. Defaults to 0.90.
func MatchThreshold() float32 {
	return envFloat32("MATCH_THRESHOLD", 0.90)
}

// DriftInterval returns how often the drift worker logs a report.
// Defaults to 1h.
func DriftInterval() time.Duration {
	return envDuration("DRIFT_INTERVAL", time.Hour)
}

// DriftWindow returns how much audit history a drift report covers.
// Defaults to 24h.
func DriftWindow() time.Duration {
	return envDuration("DRIFT_WINDOW", 24*time.Hour)
}

// AssociationWindow returns how far back same-source association linking
// looks. Defaults to 24h.
func AssociationWindow() time.Duration {
	return envDuration("ASSOCIATION_WINDOW", 24*time.Hour)
}

func envFloat32(key string, def float32) float32 {
	f, err := strconv.ParseFloat(os.Getenv(key), 32)
	if err != nil || f <= 0 {
		return def
	}
	return float32(f)
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
