package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"torniket/internal/config"
	"torniket/internal/database"
	"torniket/internal/models"
	"torniket/internal/repository"
	"torniket/internal/search"
)

var (
	eventCount = flag.Int("events", 5, "Number of events to generate")
	seatCount  = flag.Int("seats", 200, "Seats per event")
	dryRun     = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

var titles = []string{
	"Symphony Under the Stars",
	"Rock Legends Reunion",
	"Jazz Night Downtown",
	"Electronic Summer Festival",
	"Acoustic Evening",
	"Opera Gala",
	"Indie Showcase",
	"Piano Recital",
}

func main() {
	flag.Parse()

	slog.Info("Starting data generator...")

	cfg := config.Load()

	if *dryRun {
		slog.Info("Dry run", "events", *eventCount, "seats_per_event", *seatCount)
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		slog.Error("Failed to connect to Elasticsearch", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db, esClient)
	ctx := context.Background()

	for i := 0; i < *eventCount; i++ {
		title := fmt.Sprintf("%s #%d", titles[rand.Intn(len(titles))], i+1)
		description := fmt.Sprintf("Generated event %d of %d", i+1, *eventCount)
		event := &models.Event{
			Title:         title,
			Description:   &description,
			DatetimeStart: time.Now().AddDate(0, 0, 7+rand.Intn(60)),
			TotalSeats:    *seatCount,
		}

		if err := repos.Events.Create(ctx, event); err != nil {
			slog.Error("Failed to create event", "title", title, "error", err)
			continue
		}

		price := int64(1000 + rand.Intn(9000))
		if err := repos.Seats.CreateSeatsForEvent(ctx, event.ID, *seatCount, price); err != nil {
			slog.Error("Failed to seed seats", "event_id", event.ID, "error", err)
			continue
		}

		slog.Info("Generated event", "event_id", event.ID, "title", title, "seats", *seatCount, "price", price)
	}

	slog.Info("Data generation completed successfully!")
}
