package main

import (
	"context"
	"flag"
	"log"
	"time"

	"warnbot/internal/repository"
	"warnbot/traits/database"
)

// Offline maintenance for the bot database. The notified_warnings table grows
// with every delivered warning; pruning old rows is safe because the feeds
// only carry active warnings and anything pruned has long expired.
func main() {
	dbPath := flag.String("db", "./warnbot.db", "path to SQLite DB")
	pruneDays := flag.Int("prune-days", 90, "delete notification records older than this many days")

	flag.Parse()

	db, err := database.InitDatabase(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)

	removed, err := users.PruneNotified(context.Background(), time.Duration(*pruneDays)*24*time.Hour)
	if err != nil {
		log.Fatalf("prune notified warnings: %v", err)
	}
	log.Printf("Pruned %d notification records older than %d days.", removed, *pruneDays)
}
