package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"LOOKBACK_DAYS", "PAGE_SIZE", "FIELDS", "SORT", "COUNTRY", "CHANNEL",
		"PENDING_STATUS", "SENTINEL_AUTHOR", "PROBE_COMMENT", "TOKEN_PATH",
		"HTTP_TIMEOUT", "OCC_SECRET_ID",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, "BASIC,CIS_BOSS_BASIC,FULL", cfg.Fields)
	assert.Equal(t, "date:asc", cfg.Sort)
	assert.Equal(t, "KZ", cfg.Country)
	assert.Equal(t, "WEB", cfg.Channel)
	assert.Equal(t, "Ожидает утверждения", cfg.PendingStatus)
	assert.Equal(t, "Anonymous", cfg.SentinelAuthor)
	assert.Equal(t, ".", cfg.ProbeComment)
	assert.Equal(t, "./token.json", cfg.TokenPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.OCCSecretID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOOKBACK_DAYS", "7")
	t.Setenv("PENDING_STATUS", "Awaiting approval")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("RETURNS_LIST_URL", "https://occ.example/returns")

	cfg := Load()

	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, "Awaiting approval", cfg.PendingStatus)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "https://occ.example/returns", cfg.ReturnsListURL)
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "not-a-number")
	assert.Equal(t, 30, GetEnvInt("PAGE_SIZE", 30))
}
