package app

import (
	"os"
	"time"

	"github.com/openlegis/openlegis-backend/internal/clients/openai"
	"github.com/openlegis/openlegis-backend/internal/clients/redis"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type Clients struct {
	Fetch  []fetch.Client
	OpenAI openai.Client
	RunBus redis.RunBus
}

// wireClients builds every fetch client whose source is configured and the
// optional side clients. A source with no configuration is simply absent
// from the orchestrator; runs against it fail with an unknown-kind error
// rather than at startup.
func wireClients(cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.StateArchiveDir != "" {
		c, err := fetch.NewArchiveClient(source.KindStateBulkXML, cfg.StateArchiveDir, log)
		if err != nil {
			return out, err
		}
		out.Fetch = append(out.Fetch, c)
	}
	if cfg.FederalArchiveDir != "" {
		c, err := fetch.NewArchiveClient(source.KindFederalBulkXML, cfg.FederalArchiveDir, log)
		if err != nil {
			return out, err
		}
		out.Fetch = append(out.Fetch, c)
	}
	if cfg.CongressAPIBaseURL != "" {
		c, err := fetch.NewAPIClient(fetch.APIConfig{
			BaseURL: cfg.CongressAPIBaseURL,
			APIKey:  cfg.CongressAPIKey,
			Timeout: 30 * time.Second,
		}, log)
		if err != nil {
			return out, err
		}
		out.Fetch = append(out.Fetch, c)
	}
	if cfg.TranscriptFeedURL != "" {
		c, err := fetch.NewFeedClient(fetch.FeedConfig{
			URL:     cfg.TranscriptFeedURL,
			Timeout: 30 * time.Second,
		}, log)
		if err != nil {
			return out, err
		}
		out.Fetch = append(out.Fetch, c)
	}

	if os.Getenv("OPENAI_API_KEY") != "" {
		oc, err := openai.NewClient(log)
		if err != nil {
			return out, err
		}
		out.OpenAI = oc
	} else {
		log.Warn("OPENAI_API_KEY not set, summary and amendment vectors disabled")
	}

	if os.Getenv("REDIS_ADDR") != "" {
		bus, err := redis.NewRunBus(log)
		if err != nil {
			return out, err
		}
		out.RunBus = bus
	} else {
		log.Info("REDIS_ADDR not set, run events disabled")
	}

	return out, nil
}
