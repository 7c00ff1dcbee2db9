// Package confirm posts the "event created" reply back into the chat.
package confirm

import (
	"context"
	"fmt"

	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

// Foregrounder brings a desktop application to the front.
type Foregrounder interface {
	Foreground(ctx context.Context, app string) error
}

// Composer fills the conversation composer and submits it.
type Composer interface {
	Compose(ctx context.Context, text string) error
}

// Publisher sends the confirmation message for a created event.
type Publisher struct {
	fg       Foregrounder
	composer Composer
	app      string
}

// New returns a Publisher that foregrounds app before composing. A nil
// Foregrounder or empty app skips the switch.
func New(fg Foregrounder, composer Composer, app string) *Publisher {
	return &Publisher{fg: fg, composer: composer, app: app}
}

// Message renders the confirmation text for rec.
func Message(rec model.EventRecord) string {
	return fmt.Sprintf("✅ Event Created\n\n%s\n%s\n%s @ %s", rec.Title, rec.Location, rec.DateStr, rec.TimeStr)
}

// Publish posts the confirmation for rec. The error is returned, never
// swallowed; whether it matters is the caller's call.
func (p *Publisher) Publish(ctx context.Context, rec model.EventRecord) error {
	if p.fg != nil && p.app != "" {
		if err := p.fg.Foreground(ctx, p.app); err != nil {
			return fmt.Errorf("confirm: %w", err)
		}
	}
	if err := p.composer.Compose(ctx, Message(rec)); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	appLog.Info("confirmation sent", "title", rec.Title)
	return nil
}
