package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TERMWORK_DEFAULT_SCALE", "")
	t.Setenv("JWT_EXPIRATION", "")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 25, cfg.TermWork.DefaultScale)
	assert.Equal(t, "password123", cfg.Imports.DefaultPassword)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
}

func TestLoadRejectsUnknownScale(t *testing.T) {
	t.Setenv("TERMWORK_DEFAULT_SCALE", "40")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 25, cfg.TermWork.DefaultScale)

	t.Setenv("TERMWORK_DEFAULT_SCALE", "50")
	cfg, err = Load()
	assert.NoError(t, err)
	assert.Equal(t, 50, cfg.TermWork.DefaultScale)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b"))
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
