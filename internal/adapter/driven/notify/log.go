package notify

import (
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogNotifier shows notifications as log lines. Error notifications are warnings.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NewLogNotifierTo logs to l instead of the global logger.
func NewLogNotifierTo(l zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: &l}
}

func (n *LogNotifier) Notify(note port.Notification) {
	l := n.logger
	if l == nil {
		l = &log.Logger
	}
	ev := l.Info()
	if note.Kind == port.NotificationError {
		ev = l.Warn()
	}
	ev.Str("title_key", note.TitleKey).
		Dur("timeout", note.Timeout).
		Msg("Notification")
}
