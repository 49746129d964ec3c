package shared

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvKey identifies an environment variable consumed by the application.
type EnvKey string

const (
	// EnvClientSecret is the path to the OAuth client secret JSON file.
	EnvClientSecret EnvKey = "GOOGLE_CLIENT_SECRET"
	// EnvClientToken is the path to the stored OAuth token JSON file.
	EnvClientToken EnvKey = "GOOGLE_CLIENT_TOKEN"
	// EnvKeepVideoIDs overrides the channel seen-list retention cap.
	EnvKeepVideoIDs EnvKey = "PLAYFEED_KEEP_VIDEO_IDS"
	// EnvLogLevel overrides the log level ("debug", "info", "warn", "error").
	EnvLogLevel EnvKey = "PLAYFEED_LOG_LEVEL"
)

// Get returns the raw value of the environment variable, or "" when unset.
func (k EnvKey) Get() string {
	return os.Getenv(string(k))
}

// GetOr returns the value of the environment variable, or fallback when unset.
func (k EnvKey) GetOr(fallback string) string {
	if v := os.Getenv(string(k)); v != "" {
		return v
	}
	return fallback
}

// GetInt parses the environment variable as an integer, returning fallback
// when the variable is unset or unparsable.
func (k EnvKey) GetInt(fallback int) int {
	v := os.Getenv(string(k))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// LoadEnv loads variables from a .env file in the working directory.
//
// A missing .env file is not an error; explicit environment always wins.
func LoadEnv() {
	_ = godotenv.Load()
}
