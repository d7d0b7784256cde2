// Package eventhandler contains subscribers that react to domain events
// published on the in-process event bus.
package eventhandler

import (
	"context"
	"time"

	"github.com/grindstone-bot/grindstone/internal/domain/notification"
	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/domain/shared"
	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// Rand draws a non-negative integer below n. Satisfied by *math/rand.Rand.
type Rand interface {
	Intn(n int) int
}

// LevelUpNotifier renders and sends a congratulation message for each
// LevelUpEvent. Delivery is fire and forget: a failed send is logged and the
// event is not retried.
type LevelUpNotifier struct {
	notifier    notification.Notifier
	rng         Rand
	sendTimeout time.Duration
	log         *logger.Logger
}

// NewLevelUpNotifier creates the subscriber.
func NewLevelUpNotifier(notifier notification.Notifier, rng Rand, sendTimeout time.Duration, log *logger.Logger) *LevelUpNotifier {
	return &LevelUpNotifier{
		notifier:    notifier,
		rng:         rng,
		sendTimeout: sendTimeout,
		log:         log,
	}
}

// Register subscribes the handler on the bus.
func (n *LevelUpNotifier) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventLevelUp, n.handle)
}

func (n *LevelUpNotifier) handle(event shared.Event) error {
	levelUp, ok := event.(progression.LevelUpEvent)
	if !ok {
		n.log.Warn("unexpected event payload",
			logger.F("event_type", string(event.EventType())),
			logger.F("event_id", event.EventID()),
		)
		return nil
	}

	msg := notification.Message{
		GuildID:   string(levelUp.GuildID),
		ChannelID: string(levelUp.ChannelID),
		UserID:    string(levelUp.UserID),
		Text: notification.LevelUpText(
			string(levelUp.UserID),
			int(levelUp.NewLevel),
			n.rng.Intn(notification.TemplateCount()),
		),
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
	defer cancel()

	if err := n.notifier.Send(ctx, msg); err != nil {
		n.log.Warn("level-up notification failed",
			logger.UserID(string(levelUp.UserID)),
			logger.GuildID(string(levelUp.GuildID)),
			logger.LevelField(int(levelUp.NewLevel)),
			logger.Err(err),
		)
		return nil
	}

	n.log.Info("level-up notification sent",
		logger.UserID(string(levelUp.UserID)),
		logger.GuildID(string(levelUp.GuildID)),
		logger.LevelField(int(levelUp.NewLevel)),
	)
	return nil
}
