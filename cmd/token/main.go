// Command token prints a bearer token for a CMS site, signed with JWT_SECRET.
//
//	go run ./cmd/token -site blog.example.com -ttl 8760h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lskyplus/bridge/internal/auth"
	"github.com/lskyplus/bridge/internal/config"
	"github.com/lskyplus/bridge/internal/logging"
)

func main() {
	site := flag.String("site", "", "site name placed in the token subject")
	ttl := flag.Duration("ttl", auth.DefaultTTL, "token lifetime")
	flag.Parse()

	logger := logging.New("development", os.Stderr)
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.IsProduction() && cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Error("refusing to sign with the default JWT_SECRET in production")
		os.Exit(1)
	}

	token, err := auth.IssueSiteToken(cfg.JWTSecret, *site, *ttl, time.Now())
	if err != nil {
		logger.Error("could not issue token", "error", err)
		os.Exit(2)
	}
	fmt.Println(token)
}
