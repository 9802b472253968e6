// migrate applies the local store migrations to STORE_DSN (sqlite3://file or postgres://...).
// The console and relay migrate up on start; this is for rolling back or preparing a shared store.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"envmonitor/console/internal/config"
	"envmonitor/console/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.StoreDSN, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("migrate: store already at target version")
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrate: %s done\n", *direction)
}
