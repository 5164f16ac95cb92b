package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresClaimSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.ErrorIs(t, err, envconfig.ErrMissingRequired)
}

func TestLoadRejectsExampleClaimSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AUTH_CLAIM_SECRET": "change-me",
	}))
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"AUTH_CLAIM_SECRET": "s3cret",
		"DB_HOST":           "db.internal",
	}))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.ClaimSecret)
	assert.Equal(t, 168*time.Hour, cfg.Auth.ClaimTTL)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "root:@tcp(db.internal:3306)/mailspot?charset=utf8mb4&parseTime=true&loc=UTC", cfg.Database.DSN())
}
