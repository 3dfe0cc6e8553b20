package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the advisor server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the FAQ bank is stored
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Generation proxy configuration (RAG over the uploaded handbook).
	ProxyEndpoint  string // ADVISOR_PROXY_ENDPOINT
	ProxyAPIKey    string // ADVISOR_PROXY_API_KEY
	ProxySessionID string // ADVISOR_PROXY_SESSION_ID (default: cs-handbook)
	HandbookPath   string // ADVISOR_HANDBOOK_PATH (optional PDF uploaded at startup)

	// Direct LLM configuration, used for semantic FAQ matching and as a
	// generation fallback when no proxy endpoint is configured.
	LLMProvider string // ADVISOR_LLM_PROVIDER (openai or ollama)
	LLMAPIKey   string // ADVISOR_LLM_API_KEY
	LLMBaseURL  string // ADVISOR_LLM_BASE_URL
	LLMModel    string // ADVISOR_LLM_MODEL (default: gpt-4o-mini)

	// Chat platform used to reach the human advisor.
	ChatBaseURL   string // ADVISOR_CHAT_BASE_URL
	ChatAuthToken string // ADVISOR_CHAT_AUTH_TOKEN
	ChatBotUser   string // ADVISOR_CHAT_BOT_USER (identity of this bot on the platform)
	AdvisorUser   string // ADVISOR_HUMAN_USER (default: cs-advisor)

	// Pipeline tunables.
	ConfidenceThreshold float32       // ADVISOR_CONFIDENCE_THRESHOLD (default: 0.6)
	RAGTopK             int           // ADVISOR_RAG_TOP_K (default: 3)
	RAGThreshold        float32       // ADVISOR_RAG_THRESHOLD (default: 0.6)
	HistoryWindow       int           // ADVISOR_HISTORY_WINDOW (default: 5)
	KnownEntities       []string      // ADVISOR_KNOWN_ENTITIES (comma-separated course codes)
	RateLimitRPS        float64       // ADVISOR_RATE_LIMIT_RPS (default: 2)
	RateLimitBurst      int           // ADVISOR_RATE_LIMIT_BURST (default: 5)
	FAQCaseSensitive    bool          // ADVISOR_FAQ_CASE_SENSITIVE (default: false)
	ShowUnverified      bool          // ADVISOR_SHOW_UNVERIFIED (default: false)
	RequestTimeout      time.Duration // ADVISOR_REQUEST_TIMEOUT (default: 30s)
	MaxInflightGen      int           // ADVISOR_MAX_INFLIGHT_GENERATIONS (default: 8)
	PollInterval        time.Duration // ADVISOR_POLL_INTERVAL (default: 5s)
	RetentionTTL        time.Duration // ADVISOR_RETENTION_TTL (default: 168h)
	SweepInterval       time.Duration // ADVISOR_SWEEP_INTERVAL (default: 1h)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsProxyEnabled returns true when the RAG generation proxy is configured.
func (p *Profile) IsProxyEnabled() bool {
	return p.ProxyEndpoint != ""
}

// IsLLMEnabled returns true when a direct LLM provider is usable.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// FromEnv loads configuration from ADVISOR_* environment variables.
func (p *Profile) FromEnv() {
	p.ProxyEndpoint = os.Getenv("ADVISOR_PROXY_ENDPOINT")
	p.ProxyAPIKey = os.Getenv("ADVISOR_PROXY_API_KEY")
	p.ProxySessionID = getEnvOrDefault("ADVISOR_PROXY_SESSION_ID", "cs-handbook")
	p.HandbookPath = os.Getenv("ADVISOR_HANDBOOK_PATH")

	p.LLMProvider = getEnvOrDefault("ADVISOR_LLM_PROVIDER", "openai")
	p.LLMAPIKey = os.Getenv("ADVISOR_LLM_API_KEY")
	p.LLMBaseURL = os.Getenv("ADVISOR_LLM_BASE_URL")
	p.LLMModel = getEnvOrDefault("ADVISOR_LLM_MODEL", "gpt-4o-mini")

	p.ChatBaseURL = os.Getenv("ADVISOR_CHAT_BASE_URL")
	p.ChatAuthToken = os.Getenv("ADVISOR_CHAT_AUTH_TOKEN")
	p.ChatBotUser = getEnvOrDefault("ADVISOR_CHAT_BOT_USER", "handbook-bot")
	p.AdvisorUser = getEnvOrDefault("ADVISOR_HUMAN_USER", "cs-advisor")

	p.ConfidenceThreshold = getFloatEnv("ADVISOR_CONFIDENCE_THRESHOLD", 0.6)
	p.RAGTopK = getIntEnv("ADVISOR_RAG_TOP_K", 3)
	p.RAGThreshold = getFloatEnv("ADVISOR_RAG_THRESHOLD", 0.6)
	p.HistoryWindow = getIntEnv("ADVISOR_HISTORY_WINDOW", 5)
	p.KnownEntities = getListEnv("ADVISOR_KNOWN_ENTITIES")
	p.RateLimitRPS = float64(getFloatEnv("ADVISOR_RATE_LIMIT_RPS", 2))
	p.RateLimitBurst = getIntEnv("ADVISOR_RATE_LIMIT_BURST", 5)
	p.FAQCaseSensitive = os.Getenv("ADVISOR_FAQ_CASE_SENSITIVE") == "true"
	p.ShowUnverified = os.Getenv("ADVISOR_SHOW_UNVERIFIED") == "true"
	p.RequestTimeout = getDurationEnv("ADVISOR_REQUEST_TIMEOUT", 30*time.Second)
	p.MaxInflightGen = getIntEnv("ADVISOR_MAX_INFLIGHT_GENERATIONS", 8)
	p.PollInterval = getDurationEnv("ADVISOR_POLL_INTERVAL", 5*time.Second)
	p.RetentionTTL = getDurationEnv("ADVISOR_RETENTION_TTL", 168*time.Hour)
	p.SweepInterval = getDurationEnv("ADVISOR_SWEEP_INTERVAL", time.Hour)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data dir")
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("advisor_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold %v out of range [0,1]", p.ConfidenceThreshold)
	}
	if p.HistoryWindow <= 0 {
		p.HistoryWindow = 5
	}
	if p.RAGTopK <= 0 {
		p.RAGTopK = 3
	}
	if p.MaxInflightGen <= 0 {
		p.MaxInflightGen = 8
	}

	return nil
}
