package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// Scheduler configuration
	SchedulerIntervalSeconds int // tick interval of the watch scheduler
	GraceWindowMinutes       int // overdue Pending watches past this expire instead of voting

	// Watch creation limits
	MinAdvanceMinutes int // earliest allowed scheduled time, relative to now

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Scheduler defaults
		SchedulerIntervalSeconds: 15,
		GraceWindowMinutes:       60,

		// Watch creation defaults
		MinAdvanceMinutes: 1,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if interval := os.Getenv("SCHEDULER_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SchedulerIntervalSeconds = parsed
		}
	}
	if grace := os.Getenv("GRACE_WINDOW_MINUTES"); grace != "" {
		if parsed, err := strconv.Atoi(grace); err == nil && parsed > 0 {
			config.GraceWindowMinutes = parsed
		}
	}
	if minAdvance := os.Getenv("MIN_ADVANCE_MINUTES"); minAdvance != "" {
		if parsed, err := strconv.Atoi(minAdvance); err == nil && parsed >= 0 {
			config.MinAdvanceMinutes = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
