package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"WALLET_START", "BET_AMOUNT", "DECK_SEED", "DATABASE_URL", "AUTO_MIGRATE",
		"PORT", "MAX_ROUNDS", "JUDGE_TRIALS", "NO_COLOR", "USE_COLOR", "DEBUG", "LLM_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.WalletStart)
	assert.Equal(t, 10, cfg.BetAmount)
	assert.NotZero(t, cfg.DeckSeed)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.MaxRounds)
	assert.Equal(t, 2000, cfg.JudgeTrials)
	assert.True(t, cfg.UseColor)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.Migrate || cfg.Serve || cfg.Auto || cfg.Judge || cfg.LLM)
	assert.False(t, cfg.unattended())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WALLET_START", "250")
	t.Setenv("BET_AMOUNT", "25")
	t.Setenv("DECK_SEED", "1234")
	t.Setenv("DATABASE_URL", " postgres://x ")
	t.Setenv("AUTO_MIGRATE", "yes")
	t.Setenv("USE_COLOR", "0")
	t.Setenv("DEBUG", "1")
	t.Setenv("MAX_ROUNDS", "junk")

	cfg, err := loadConfig([]string{"--auto", "--judge"})
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.WalletStart)
	assert.Equal(t, 25, cfg.BetAmount)
	assert.Equal(t, int64(1234), cfg.DeckSeed)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.UseColor)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 100, cfg.MaxRounds)
	assert.True(t, cfg.Auto)
	assert.True(t, cfg.Judge)
}

func TestLoadConfigRejects(t *testing.T) {
	clearEnv(t)
	_, err := loadConfig([]string{"--nope"})
	assert.Error(t, err)

	t.Setenv("BET_AMOUNT", "0")
	_, err = loadConfig(nil)
	assert.Error(t, err)

	t.Setenv("BET_AMOUNT", "10")
	t.Setenv("WALLET_START", "-5")
	_, err = loadConfig(nil)
	assert.Error(t, err)
}

func TestLoadConfigLLM(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MODEL", " openrouter/auto ")
	cfg, err := loadConfig([]string{"--llm"})
	require.NoError(t, err)
	assert.True(t, cfg.LLM)
	assert.Equal(t, "openrouter/auto", cfg.LLMModel)
	assert.True(t, cfg.unattended())

	_, err = loadConfig([]string{"--auto", "--llm"})
	assert.Error(t, err)
}

func TestNoColorEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NO_COLOR", "1")
	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.False(t, cfg.UseColor)
}

func TestSeedStreamDeterministic(t *testing.T) {
	a, b := newSeedStream(7), newSeedStream(7)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.next(), b.next())
	}
	x, y := newSeedStream(7), newSeedStream(8)
	assert.NotEqual(t, x.next(), y.next())
}
