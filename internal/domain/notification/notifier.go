// Package notification defines the outbound notification port. The actual
// chat gateway lives outside this service; the engine only hands it a
// rendered message.
package notification

import (
	"context"
	"fmt"
)

// Message is a single outbound notification.
type Message struct {
	// GuildID - guild the message belongs to.
	GuildID string

	// ChannelID - channel to deliver the message to.
	ChannelID string

	// UserID - user the message is about (for mention rendering downstream).
	UserID string

	// Text - rendered message body. Content is cosmetic, not contractual.
	Text string
}

// Notifier delivers messages to the external notification sink. Delivery is
// best effort: a failed send is logged by the caller and never retried.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// levelUpTemplates is the pool of congratulation messages. One is picked per
// level-up using the provided draw.
var levelUpTemplates = []string{
	"🎉 Congratulations <@%s>! You leveled up to **level %d**!",
	"🌟 Amazing work <@%s>! You've reached **level %d**!",
	"🚀 <@%s> is on fire! Leveled up to **level %d**!",
	"🏆 Level up! <@%s> is now **level %d**!",
	"✨ <@%s> has ascended to **level %d**!",
	"🔥 <@%s> leveled up to **level %d**! Keep it up!",
	"💫 Bravo <@%s>! Welcome to **level %d**!",
	"🎊 <@%s> just hit **level %d**! Amazing progress!",
}

// LevelUpText renders a level-up message. The draw selects a template; any
// integer is accepted and wrapped into range.
func LevelUpText(userID string, newLevel int, draw int) string {
	if draw < 0 {
		draw = -draw
	}
	tmpl := levelUpTemplates[draw%len(levelUpTemplates)]
	return fmt.Sprintf(tmpl, userID, newLevel)
}

// TemplateCount returns the number of level-up templates.
func TemplateCount() int {
	return len(levelUpTemplates)
}
