package app

import (
	"fmt"
	"strings"

	"github.com/aymarr/mediguardian-backend/internal/clients/expo"
	"github.com/aymarr/mediguardian-backend/internal/clients/extractor"
	"github.com/aymarr/mediguardian-backend/internal/clients/gcp"
	redisclient "github.com/aymarr/mediguardian-backend/internal/clients/redis"
	"github.com/aymarr/mediguardian-backend/internal/modules/reminders"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/utils"
)

type Clients struct {
	Extractor extractor.Client
	Push      expo.Transport
	Counters  reminders.CounterStore

	closers []func() error
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	switch strings.ToLower(cfg.ExtractorProvider) {
	case "vision":
		ext, closeFn, err := gcp.NewVisionExtractor(log)
		if err != nil {
			return c, fmt.Errorf("init vision extractor: %w", err)
		}
		c.Extractor = ext
		c.closers = append(c.closers, closeFn)
	default:
		ext, err := extractor.NewHTTPClient(log)
		if err != nil {
			return c, fmt.Errorf("init extractor client: %w", err)
		}
		c.Extractor = ext
	}

	push, err := expo.NewClient(log)
	if err != nil {
		return c, fmt.Errorf("init expo client: %w", err)
	}
	c.Push = push

	// Redis when configured; in-memory keeps single-instance deployments
	// working without it.
	if utils.GetEnv("REDIS_ADDR", "", log) != "" {
		store, err := redisclient.NewCounterStore(log)
		if err != nil {
			return c, fmt.Errorf("init redis counters: %w", err)
		}
		c.Counters = store
		c.closers = append(c.closers, store.Close)
	} else {
		log.Warn("REDIS_ADDR not set, using in-memory escalation counters")
		c.Counters = reminders.NewMemoryCounterStore()
	}

	return c, nil
}

func (c Clients) Close() {
	for _, fn := range c.closers {
		_ = fn()
	}
}
