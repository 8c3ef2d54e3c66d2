package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
)

// RegisterMQConsumer starts one routine per consumer listed in
// modules.audit.consumer_names and returns how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.audit.consumer_names")
	concurrency := max(cfg.GetInt("modules.audit.concurrency"), 1)

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		handler messaging.Handler
	}{
		{
			name:    event.TOTPLockedOutConsumerAudit,
			topic:   event.TOTPLockedOutDestination,
			handler: mqHandler.TOTPLockedOut,
		},
		{
			name:    event.TOTPLockoutClearedConsumerAudit,
			topic:   event.TOTPLockoutClearedDestination,
			handler: mqHandler.TOTPLockoutCleared,
		},
	}

	started := 0
	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithSubscriber(consumer.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
			)
		})
		if ok {
			started++
		}
	}

	return started
}
