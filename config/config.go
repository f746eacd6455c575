// Package config loads argoproxy's runtime configuration from environment
// variables (spec.md §6), following the teacher's env-override-over-struct
// pattern (agent/config_loader.go) and its godotenv.Load() use in main.go.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/taipm/argoproxy/session"
)

// Config is the process-wide configuration built once at startup and held
// by the Application Context.
type Config struct {
	ArgoAPIURL        string
	NativeOpenAI      bool
	NativeAnthropic   bool
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	Dev               bool
	Verbose           bool

	Session session.Config

	EnableLeakedToolFix bool
	LeakLogDir          string
	AttackLogDir        string

	// ProxyUser is injected into every outbound Argo request body as the
	// `user` field (spec.md §6); for the Anthropic family it is mirrored to
	// `metadata.user_id` by translate.BuildArgoRequest.
	ProxyUser string
}

func defaults() Config {
	return Config{
		ArgoAPIURL:       "https://argo.example/v1",
		OpenAIBaseURL:    "https://api.openai.com/v1",
		AnthropicBaseURL: "https://api.anthropic.com/v1",
		Session:          session.DefaultConfig(),
		LeakLogDir:       "./log/leaked_tools",
		AttackLogDir:     "./log/attacks",
		ProxyUser:        "argoproxy",
	}
}

// LoadFromEnv reads the `ARGO_*`/`ENABLE_LEAKED_TOOL_FIX` variables of
// spec.md §6 over top of sane defaults. A `.env` file in the working
// directory is loaded first, if present, exactly as the teacher's main.go
// does; its absence is not an error.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if v := os.Getenv("ARGO_API_URL"); v != "" {
		cfg.ArgoAPIURL = v
	}
	if v, ok := lookupInt("ARGO_PROXY_MAX_CONNECTIONS"); ok {
		cfg.Session.TotalConnections = v
	}
	if v, ok := lookupInt("ARGO_PROXY_MAX_CONNECTIONS_PER_HOST"); ok {
		cfg.Session.ConnectionsPerHost = v
	}
	if v, ok := lookupDuration("ARGO_PROXY_CONNECT_TIMEOUT"); ok {
		cfg.Session.ConnectTimeout = v
	}
	if v, ok := lookupDuration("ARGO_PROXY_READ_TIMEOUT"); ok {
		cfg.Session.ReadTimeout = v
	}
	if v, ok := lookupDuration("ARGO_PROXY_TOTAL_TIMEOUT"); ok {
		cfg.Session.TotalTimeout = v
	}
	if v, ok := lookupDuration("ARGO_PROXY_KEEPALIVE_TIMEOUT"); ok {
		cfg.Session.KeepAliveTimeout = v
	}
	if v, ok := lookupDuration("ARGO_PROXY_DNS_CACHE_TTL"); ok {
		cfg.Session.DNSCacheTTL = v
	}
	if v, ok := lookupBool("ENABLE_LEAKED_TOOL_FIX"); ok {
		cfg.EnableLeakedToolFix = v
	}
	if v := os.Getenv("ARGO_PROXY_LEAK_LOG_DIR"); v != "" {
		cfg.LeakLogDir = v
	}
	if v := os.Getenv("ARGO_PROXY_ATTACK_LOG_DIR"); v != "" {
		cfg.AttackLogDir = v
	}
	if v := os.Getenv("ARGO_PROXY_USER"); v != "" {
		cfg.ProxyUser = v
	}

	return cfg, nil
}

func lookupInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	// Plain integers are read as seconds; anything else is parsed as a Go
	// duration string ("30s", "2m").
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func lookupBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
