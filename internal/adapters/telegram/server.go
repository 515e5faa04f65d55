package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// updateSource is the polling part of tgbotapi.BotAPI.
type updateSource interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotServer runs the bot in long polling mode.
type BotServer struct {
	api        updateSource
	router     *Router
	workerPool int
	log        zerolog.Logger
}

// NewBotServer creates a new server instance
func NewBotServer(api *tgbotapi.BotAPI, router *Router, workerPool int, baseLogger *zerolog.Logger) *BotServer {
	return newBotServer(api, router, workerPool, baseLogger)
}

func newBotServer(api updateSource, router *Router, workerPool int, baseLogger *zerolog.Logger) *BotServer {
	if workerPool <= 0 {
		workerPool = 1
	}
	return &BotServer{
		api:        api,
		router:     router,
		workerPool: workerPool,
		log:        baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start polls for updates until ctx is cancelled.
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Int("workers", s.workerPool).Msg("Starting bot in POLLING mode")

	// 1. Clear any existing webhook
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	// 2. Create the channel for updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	// 3. Create the job channel
	jobs := make(chan tgbotapi.Update, 100)

	// 4. Start the worker pool
	var wg sync.WaitGroup
	for w := 1; w <= s.workerPool; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := s.log.With().Int("worker_id", id).Logger()
			log.Debug().Msg("Starting polling worker")
			for job := range jobs {
				// Commands outlive a shutdown signal so a running change completes.
				s.router.HandleUpdate(context.WithoutCancel(ctx), &job)
			}
			log.Debug().Msg("Stopping polling worker (channel closed)")
		}(w)
	}

	// 5. Main loop: Listen for updates and dispatch jobs
	for {
		select {
		case <-ctx.Done(): // Shutdown signal received
			close(jobs)
			s.api.StopReceivingUpdates()
			wg.Wait()
			s.log.Info().Msg("Polling stopped gracefully")
			return nil
		case update, ok := <-updates:
			if !ok {
				close(jobs)
				wg.Wait()
				s.log.Warn().Msg("Update channel closed")
				return nil
			}
			jobs <- update
		}
	}
}
