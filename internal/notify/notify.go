// Package notify provides the built-in notifier implementations.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes outbound messages to the structured log. It is the
// default when no external notifier is configured and the fallback target
// for tests.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

// Send logs the message. Best-effort by contract: never returns an error.
func (n *LogNotifier) Send(_ context.Context, destination, message string) {
	n.log.Info().Str("destination", destination).Str("message", message).Msg("Notification")
}
