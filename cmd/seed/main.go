// Command seed fills the configured database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"ideaboard/internal/bootstrap"
	"ideaboard/internal/config"
	"ideaboard/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 40, "Number of users to create")
	numIdeas := flag.Int("ideas", 120, "Number of ideas to create")
	numMods := flag.Int("moderators", 3, "How many of the users are moderators")
	maxDays := flag.Int("max-days", 90, "Spread idea creation times over this many days")
	seedValue := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Remove existing content and non-admin users first")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db, nil, *seedValue)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		Users:      *numUsers,
		Ideas:      *numIdeas,
		Moderators: *numMods,
		MaxDays:    *maxDays,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d ideas, %d votes, %d comments, %d flags",
		sum.Users, sum.Ideas, sum.Votes, sum.Comments, sum.Flags)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
