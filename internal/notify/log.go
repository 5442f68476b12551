package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"git.home.luguber.info/inful/calfstretch/internal/config"
)

const logHistorySize = 50

// Message is one emitted notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LogGateway writes notifications to the structured log and remembers the
// most recent ones. The prompt policy resolves to granted.
type LogGateway struct {
	*permissionState

	mu      sync.Mutex
	history []Message
}

func NewLogGateway(policy config.PermissionPolicy) *LogGateway {
	return &LogGateway{permissionState: newPermissionState(policy, nil)}
}

func (g *LogGateway) QueryPermission(context.Context) Permission { return g.query() }

func (g *LogGateway) RequestPermission(ctx context.Context) Permission { return g.request(ctx) }

func (g *LogGateway) Emit(ctx context.Context, title, body string) {
	slog.InfoContext(ctx, "Notification", slog.String("title", title), slog.String("body", body))

	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, Message{Title: title, Body: body})
	if len(g.history) > logHistorySize {
		g.history = g.history[len(g.history)-logHistorySize:]
	}
}

// Messages returns the retained notifications, oldest first.
func (g *LogGateway) Messages() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.history)
}
