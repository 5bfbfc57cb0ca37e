// Package remote translates queued mutations into REST calls against the
// hosted Supabase backend.
package remote

import "os"

// Config holds the remote endpoint and credential.
type Config struct {
	BaseURL string
	APIKey  string
}

// Environment variables supplying the remote configuration. The NEXT_PUBLIC_
// variants are read as fallback because the bundled web process shares its
// environment with the backend.
const (
	EnvURL           = "SUPABASE_URL"
	EnvKey           = "SUPABASE_ANON_KEY"
	envURLWebProcess = "NEXT_PUBLIC_SUPABASE_URL"
	envKeyWebProcess = "NEXT_PUBLIC_SUPABASE_ANON_KEY"
)

// ConfigFromEnv loads the remote configuration from the process environment.
// A missing URL or key means sync is disabled, not an error: ok is false and
// sessions report "not configured" while entries stay pending.
func ConfigFromEnv() (*Config, bool) {
	url := os.Getenv(EnvURL)
	if url == "" {
		url = os.Getenv(envURLWebProcess)
	}
	key := os.Getenv(EnvKey)
	if key == "" {
		key = os.Getenv(envKeyWebProcess)
	}
	if url == "" || key == "" {
		return nil, false
	}
	return &Config{BaseURL: url, APIKey: key}, true
}
