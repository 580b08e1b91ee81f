// Binary login walks the operator through the interactive auth-code flow and
// persists the resulting access token for the bot to pick up.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"intrabot-go/internal/config"
	"intrabot-go/internal/fyers"
	"intrabot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()
	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config")
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		log.Fatal().Err(err).Msg("load credentials")
	}

	store := fyers.TokenStore{Path: cfg.App.TokenFile}
	if _, ok := store.Load(); ok {
		log.Info().Str("path", cfg.App.TokenFile).Msg("access token already exists, delete the file to re-authenticate")
		return
	}

	client := fyers.NewClient(creds, "", log)
	fmt.Println("1. Open this URL and log in:")
	fmt.Println("   " + client.AuthURL())
	fmt.Println("2. After the redirect, copy the auth_code query parameter.")
	fmt.Print("Enter the auth_code: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Fatal().Err(err).Msg("read auth code")
	}
	authCode := strings.TrimSpace(line)
	if authCode == "" {
		log.Fatal().Msg("empty auth code")
	}

	token, err := client.ExchangeCode(context.Background(), authCode)
	if err != nil {
		log.Fatal().Err(err).Msg("token exchange failed")
	}
	if err := store.Save(token); err != nil {
		log.Fatal().Err(err).Msg("persist token")
	}
	log.Info().Str("path", cfg.App.TokenFile).Msg("access token generated and saved")
}
