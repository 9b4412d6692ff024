package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty means allow all", raw: "", want: nil},
		{name: "single", raw: "https://a.test", want: []string{"https://a.test"}},
		{name: "trims and skips blanks", raw: " https://a.test , ,https://b.test ", want: []string{"https://a.test", "https://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.raw))
		})
	}
}

func TestLoadAttemptSettings(t *testing.T) {
	t.Setenv("ATTEMPT_GRACE_SECONDS", "45")
	t.Setenv("EXPIRY_SWEEP_SECONDS", "10")
	t.Setenv("RESUME_IN_PROGRESS_ATTEMPTS", "false")

	cfg := Load()

	assert.Equal(t, 45*time.Second, cfg.AttemptGrace)
	assert.Equal(t, 10*time.Second, cfg.ExpirySweepInterval)
	assert.False(t, cfg.ResumeInProgress)
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	t.Setenv("SOME_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
	assert.True(t, getEnvBool("SOME_BOOL", true))
	assert.Equal(t, "x", getEnv("UNSET_KEY_FOR_TEST", "x"))
}
