package credentials

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// KeychainService is the keychain item the token is stored under.
const KeychainService = "blocknotes-api-token"

// notFoundExit is what `security` exits with when the item is missing.
const notFoundExit = 44

// runner executes the keychain CLI. Swapped out in tests.
type runner func(ctx context.Context, args ...string) ([]byte, error)

func securityCLI(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "security", args...).Output()
}

// KeychainSource reads the token from the macOS Keychain via the
// `security` CLI. Lookups are cached for ttl so a debounced save does
// not fork a process.
type KeychainSource struct {
	account string
	ttl     time.Duration
	log     zerolog.Logger
	run     runner

	mu      sync.Mutex
	token   string
	fetched time.Time
}

// NewKeychainSource returns a source for the token of account.
func NewKeychainSource(account string, ttl time.Duration, log zerolog.Logger) *KeychainSource {
	return &KeychainSource{account: account, ttl: ttl, log: log, run: securityCLI}
}

// Token returns the stored token, "" when there is none.
func (k *KeychainSource) Token() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.fetched.IsZero() && time.Since(k.fetched) < k.ttl {
		return k.token
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := k.run(ctx, "find-generic-password", "-a", k.account, "-s", KeychainService, "-w")
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		k.token = strings.TrimSpace(string(out))
	case errors.As(err, &exitErr) && exitErr.ExitCode() == notFoundExit:
		k.token = ""
	default:
		// Keep the last known token; a flaky lookup should not sign the user out.
		k.log.Warn().Err(err).Msg("keychain lookup failed")
		return k.token
	}
	k.fetched = time.Now()
	return k.token
}

// Set stores token, replacing any previous one.
func (k *KeychainSource) Set(ctx context.Context, token string) error {
	if _, err := k.run(ctx, "add-generic-password", "-a", k.account, "-s", KeychainService, "-w", token, "-U"); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	k.mu.Lock()
	k.token, k.fetched = token, time.Now()
	k.mu.Unlock()
	return nil
}

// Close is a no-op; it lets KeychainSource stand in for a FileSource.
func (k *KeychainSource) Close() error { return nil }
