// Command settoken stores the SheetDB bearer token in the local
// database so the server picks it up on its next remote call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/samhvw8/finance-tracking/internal/store"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOr("SQLITE_DB_PATH", "./data/fintrack.db"), "path to the local database")
	clear := flag.Bool("clear", false, "remove the stored token instead of setting one")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if *clear {
		if err := s.DeleteSetting(ctx, store.SettingAPIToken); err != nil {
			log.Fatalf("clear token: %v", err)
		}
		fmt.Println("Token removed.")
		return
	}

	token := strings.TrimSpace(flag.Arg(0))
	if token == "" {
		fmt.Fprintln(os.Stderr, "usage: settoken [-db path] <token>")
		os.Exit(2)
	}

	if err := s.PutSetting(ctx, store.SettingAPIToken, token); err != nil {
		log.Fatalf("store token: %v", err)
	}
	fmt.Println("Token stored.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
