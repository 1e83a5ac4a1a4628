package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/skill"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := make(map[string]string)
	required := []string{"TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	// Connect directly to the primary database
	dbURL := fmt.Sprintf("%s?authToken=%s", cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		log.Fatalf("Failed to open primary database: %s", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to primary database: %s", err)
	}

	log.Info("Successfully connected to the primary database.")

	store := league.New(db)

	// Eight demo players at the default rating.
	names := []string{"Ava", "Ben", "Cleo", "Dan", "Elin", "Finn", "Gus", "Hana"}
	players := make([]league.PlayerRating, 0, len(names))
	for i, name := range names {
		players = append(players, league.NewPlayerRating(fmt.Sprintf("player-%d", i+1), name))
	}
	if err := store.UpsertPlayers(players); err != nil {
		log.Fatalf("Failed to insert demo players: %s", err)
	}
	log.Info("Ensured demo players exist.", "count", len(players))

	const numMatches = 200

	log.Info("Settling demo matches...", "total", numMatches)
	startTime := time.Now()

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.PlayerID
	}

	for i := 0; i < numMatches; i++ {
		rand.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
		roster := league.Roster{
			TeamA: append([]string{}, ids[:4]...),
			TeamB: append([]string{}, ids[4:]...),
		}

		winner := skill.TeamA
		if rand.Intn(2) == 1 {
			winner = skill.TeamB
		}

		rec := &league.MatchRecord{
			Token:     uuid.NewString(),
			Roster:    roster,
			Winner:    winner,
			State:     league.StateSettled,
			SettledAt: time.Now().Add(-time.Duration(rand.Intn(90*24)) * time.Hour).Unix(),
			SettledBy: roster.TeamA[0],
		}
		if _, err := store.ApplySettlement(rec); err != nil {
			log.Fatalf("Failed to settle demo match: %s", err)
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully settled all demo matches.", "duration", duration)
}
