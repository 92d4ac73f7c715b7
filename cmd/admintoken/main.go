package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/auth"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/config"
)

// Mints a bearer token for the admin API. Meant for operators, not users.
func main() {
	sub := flag.String("sub", "ops", "subject to embed in the token")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	token, err := auth.NewAdminToken(*sub, cfg.Auth.JWTSecret, cfg.Auth.AdminTokenTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
