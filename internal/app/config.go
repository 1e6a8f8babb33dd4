package app

import (
	"time"

	"github.com/openlegis/openlegis-backend/internal/pkg/envutil"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type Config struct {
	Port                string
	ShutdownTimeout     time.Duration
	Workers             int
	SchedulesConfigPath string
	AutoMigrate         bool

	StateArchiveDir   string
	FederalArchiveDir string

	CongressAPIBaseURL string
	CongressAPIKey     string

	TranscriptFeedURL string
}

func LoadConfig(log *logger.Logger) Config {
	shutdownSeconds := envutil.GetEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 15, log)
	return Config{
		Port:                envutil.GetEnv("PORT", "8080", log),
		ShutdownTimeout:     time.Duration(shutdownSeconds) * time.Second,
		Workers:             envutil.GetEnvAsInt("INGEST_WORKERS", 4, log),
		SchedulesConfigPath: envutil.GetEnv("SCHEDULES_CONFIG_PATH", "", log),
		AutoMigrate:         envutil.GetEnvAsBool("POSTGRES_AUTO_MIGRATE", true, log),
		StateArchiveDir:     envutil.GetEnv("STATE_ARCHIVE_DIR", "", log),
		FederalArchiveDir:   envutil.GetEnv("FEDERAL_ARCHIVE_DIR", "", log),
		CongressAPIBaseURL:  envutil.GetEnv("CONGRESS_API_BASE_URL", "", log),
		CongressAPIKey:      envutil.GetEnv("CONGRESS_API_KEY", "", log),
		TranscriptFeedURL:   envutil.GetEnv("TRANSCRIPT_FEED_URL", "", log),
	}
}
