package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "cs-handbook", p.ProxySessionID)
	assert.Equal(t, "cs-advisor", p.AdvisorUser)
	assert.Equal(t, "handbook-bot", p.ChatBotUser)
	assert.InDelta(t, 0.6, p.ConfidenceThreshold, 0.001)
	assert.Equal(t, 3, p.RAGTopK)
	assert.Equal(t, 5, p.HistoryWindow)
	assert.Equal(t, 30*time.Second, p.RequestTimeout)
	assert.Equal(t, 168*time.Hour, p.RetentionTTL)
	assert.False(t, p.FAQCaseSensitive)
	assert.False(t, p.ShowUnverified)
	assert.Nil(t, p.KnownEntities)
	assert.InDelta(t, 2.0, p.RateLimitRPS, 0.001)
	assert.Equal(t, 5, p.RateLimitBurst)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADVISOR_CONFIDENCE_THRESHOLD", "0.85")
	t.Setenv("ADVISOR_HISTORY_WINDOW", "10")
	t.Setenv("ADVISOR_REQUEST_TIMEOUT", "5s")
	t.Setenv("ADVISOR_FAQ_CASE_SENSITIVE", "true")
	t.Setenv("ADVISOR_PROXY_ENDPOINT", "https://proxy.example.com/generate")
	t.Setenv("ADVISOR_KNOWN_ENTITIES", "CS15, CS40,CS160, ")
	t.Setenv("ADVISOR_RATE_LIMIT_RPS", "0.5")
	t.Setenv("ADVISOR_RATE_LIMIT_BURST", "2")

	p := &Profile{}
	p.FromEnv()

	assert.InDelta(t, 0.85, p.ConfidenceThreshold, 0.001)
	assert.Equal(t, 10, p.HistoryWindow)
	assert.Equal(t, 5*time.Second, p.RequestTimeout)
	assert.True(t, p.FAQCaseSensitive)
	assert.True(t, p.IsProxyEnabled())
	assert.Equal(t, []string{"CS15", "CS40", "CS160"}, p.KnownEntities)
	assert.InDelta(t, 0.5, p.RateLimitRPS, 0.001)
	assert.Equal(t, 2, p.RateLimitBurst)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ADVISOR_CONFIDENCE_THRESHOLD", "not-a-number")
	t.Setenv("ADVISOR_RAG_TOP_K", "three")
	t.Setenv("ADVISOR_POLL_INTERVAL", "soon")

	p := &Profile{}
	p.FromEnv()

	assert.InDelta(t, 0.6, p.ConfidenceThreshold, 0.001)
	assert.Equal(t, 3, p.RAGTopK)
	assert.Equal(t, 5*time.Second, p.PollInterval)
}

func TestValidate(t *testing.T) {
	t.Run("UnknownModeFallsBackToDemo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
		p.FromEnv()
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.Contains(t, p.DSN, "advisor_demo.db")
	})

	t.Run("UnknownDriverRejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
		p.FromEnv()
		require.Error(t, p.Validate())
	})

	t.Run("ThresholdOutOfRangeRejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
		p.FromEnv()
		p.ConfidenceThreshold = 1.5
		require.Error(t, p.Validate())
	})

	t.Run("NonPositiveTunablesRepaired", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
		p.FromEnv()
		p.HistoryWindow = 0
		p.RAGTopK = -1
		p.MaxInflightGen = 0
		require.NoError(t, p.Validate())
		assert.Equal(t, 5, p.HistoryWindow)
		assert.Equal(t, 3, p.RAGTopK)
		assert.Equal(t, 8, p.MaxInflightGen)
	})
}
