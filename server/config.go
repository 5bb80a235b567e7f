package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	WalletStart int
	BetAmount   int
	DeckSeed    int64
	DatabaseURL string
	AutoMigrate bool
	Port        string
	MaxRounds   int
	JudgeTrials int
	UseColor    bool
	Debug       bool
	LLMModel    string // empty: OPENAI_MODEL / OPENROUTER_MODEL

	Migrate bool
	Serve   bool
	Auto    bool
	Judge   bool
	LLM     bool
}

// loadConfig reads the environment (after godotenv has populated it) and the
// mode flags from args.
func loadConfig(args []string) (Config, error) {
	cfg := Config{
		WalletStart: atoiDef(os.Getenv("WALLET_START"), 100),
		BetAmount:   atoiDef(os.Getenv("BET_AMOUNT"), 10),
		DeckSeed:    deckSeedFromEnvOrCrypto(),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AutoMigrate: asBool(os.Getenv("AUTO_MIGRATE")),
		Port:        getenv("PORT", "8080"),
		MaxRounds:   atoiDef(os.Getenv("MAX_ROUNDS"), 100),
		JudgeTrials: atoiDef(os.Getenv("JUDGE_TRIALS"), 2000),
		UseColor:    (os.Getenv("NO_COLOR") == "") && (strings.TrimSpace(os.Getenv("USE_COLOR")) != "0"),
		Debug:       asBool(os.Getenv("DEBUG")),
		LLMModel:    strings.TrimSpace(os.Getenv("LLM_MODEL")),
	}
	for _, a := range args {
		switch a {
		case "--migrate":
			cfg.Migrate = true
		case "--serve":
			cfg.Serve = true
		case "--auto":
			cfg.Auto = true
		case "--judge":
			cfg.Judge = true
		case "--llm":
			cfg.LLM = true
		default:
			return cfg, fmt.Errorf("unknown flag %q", a)
		}
	}
	if cfg.BetAmount <= 0 {
		return cfg, fmt.Errorf("BET_AMOUNT must be positive, got %d", cfg.BetAmount)
	}
	if cfg.WalletStart < 0 {
		return cfg, fmt.Errorf("WALLET_START must not be negative, got %d", cfg.WalletStart)
	}
	if cfg.Auto && cfg.LLM {
		return cfg, fmt.Errorf("--auto and --llm both pick the decision source; use one")
	}
	if cfg.JudgeTrials <= 0 {
		cfg.JudgeTrials = 2000
	}
	return cfg, nil
}

// unattended sessions take decisions and bets without keyboard input.
func (c Config) unattended() bool { return c.Auto || c.LLM }

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

//
// ===== randomness =====
//

// seedStream derives independent seeds (judge, bootstrap) from the deck seed.
type seedStream struct{ state uint64 }

func newSeedStream(base uint64) seedStream { return seedStream{state: base} }
func (s *seedStream) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}
func secureBaseSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:]) ^ uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return uint64(time.Now().UnixNano()) ^ 0xA5A5A5A5A5A5A5A5
}

// deckSeedFromEnvOrCrypto never returns 0, which engine.NewDeck reads as
// "seed from the clock".
func deckSeedFromEnvOrCrypto() int64 {
	if s := os.Getenv("DECK_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v != 0 {
			return v
		}
	}
	for {
		if v := int64(secureBaseSeed() >> 1); v != 0 {
			return v
		}
	}
}
