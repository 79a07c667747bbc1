package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"watchman/bot"
	"watchman/config"
	"watchman/database"
	"watchman/events"
	"watchman/repository"
	"watchman/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting watchman bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	clock := service.NewSystemClock()
	watchService := service.NewWatchService(uowFactory, cfg, clock)
	voteService := service.NewVoteService(uowFactory, clock)
	leaderboardService := service.NewLeaderboardService(uowFactory)
	settingsService := service.NewGuildSettingsService(uowFactory)
	log.Println("Services initialized successfully")

	// Start the watch scheduler
	scheduler := service.NewWatchScheduler(uowFactory, voteService, clock,
		time.Duration(cfg.SchedulerIntervalSeconds)*time.Second,
		time.Duration(cfg.GraceWindowMinutes)*time.Minute)
	stopScheduler := scheduler.Start(ctx)

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.DiscordGuildID,
	}
	discordBot, err := bot.New(botConfig, watchService, voteService, leaderboardService, settingsService, eventBus)
	if err != nil {
		stopScheduler()
		db.Close()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	stopScheduler()

	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
