package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds settings for the desktop editor and the reference server.
type Config struct {
	// Editor / client
	APIURL    string
	Token     string
	TokenFile string
	// TokenStore is "file" (watched TokenFile) or "keychain".
	TokenStore      string
	KeychainAccount string
	BlockDebounce   time.Duration
	ChildDebounce   time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
	// Reference server
	ServerAddr   string
	ServerDBPath string
	ServerToken  string
	CORSOrigin   string
}

func Load() Config {
	dataDir := defaultDataDir()
	return Config{
		APIURL:          getenv("BLOCKNOTES_API_URL", "http://localhost:8000/api/kb"),
		Token:           getenv("BLOCKNOTES_TOKEN", ""),
		TokenFile:       getenv("BLOCKNOTES_TOKEN_FILE", filepath.Join(dataDir, "token")),
		TokenStore:      getenv("BLOCKNOTES_TOKEN_STORE", "file"),
		KeychainAccount: getenv("BLOCKNOTES_KEYCHAIN_ACCOUNT", getenv("USER", "blocknotes")),
		BlockDebounce:   time.Duration(getenvInt("BLOCKNOTES_BLOCK_DEBOUNCE_MS", 500)) * time.Millisecond,
		ChildDebounce:   time.Duration(getenvInt("BLOCKNOTES_CHILD_DEBOUNCE_MS", 400)) * time.Millisecond,
		RetryAttempts:   getenvInt("BLOCKNOTES_RETRY_ATTEMPTS", 3),
		RetryDelay:      time.Duration(getenvInt("BLOCKNOTES_RETRY_DELAY_MS", 200)) * time.Millisecond,
		RequestTimeout:  time.Duration(getenvInt("BLOCKNOTES_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:        getenv("BLOCKNOTES_LOG_LEVEL", "info"),
		ServerAddr:      getenv("KBSERVER_ADDR", ":8000"),
		ServerDBPath:    getenv("KBSERVER_DB_PATH", filepath.Join(dataDir, "kb.db")),
		ServerToken:     getenv("KBSERVER_TOKEN", "blocknotes-dev-token"),
		CORSOrigin:      getenv("KBSERVER_CORS_ORIGIN", "*"),
	}
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".blocknotes"
	}
	return filepath.Join(homeDir, ".local", "share", "blocknotes")
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
