package lsky

import (
	"strconv"
	"strings"
)

// Config is the immutable connection settings of a Client.
type Config struct {
	// BaseURL always ends with exactly one "/".
	BaseURL string
	// APIKey is forwarded verbatim as the Authorization header. Empty uploads as guest.
	APIKey string
	// StrategyID selects a storage strategy on the host. Negative disables it.
	StrategyID int
}

// NewConfig normalizes raw configuration values. strategyID is honoured only
// when it is an integer; anything else leaves the strategy disabled.
func NewConfig(baseURL, apiKey, strategyID string) Config {
	cfg := Config{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/",
		APIKey:     apiKey,
		StrategyID: -1,
	}
	if id, err := strconv.Atoi(strings.TrimSpace(strategyID)); err == nil {
		cfg.StrategyID = id
	}
	return cfg
}

// HasStrategy reports whether a strategy_id field is sent on upload.
func (c Config) HasStrategy() bool {
	return c.StrategyID >= 0
}

func (c Config) url(path string) string {
	return c.BaseURL + strings.TrimLeft(path, "/")
}
