// Package gateway is the single consumer of the inbound bus: it drains
// platform events one at a time, routes chat commands, hands everything
// else to the brain, and publishes replies back to the outbound bus.
// One worker per process keeps the engine's serialization guarantee even
// with several connectors publishing concurrently.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/moekyun/mika/pkg/brain"
	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/config"
	"github.com/moekyun/mika/pkg/logger"
	"github.com/moekyun/mika/pkg/users"
)

type Worker struct {
	bus     *bus.MessageBus
	brain   *brain.Brain
	agent   config.AgentConfig
	running atomic.Bool
}

func NewWorker(cfg *config.Config, messageBus *bus.MessageBus, b *brain.Brain) *Worker {
	return &Worker{
		bus:   messageBus,
		brain: b,
		agent: cfg.Agent,
	}
}

// Run drains the inbound bus until the context is cancelled or Stop is
// called.
func (w *Worker) Run(ctx context.Context) error {
	w.running.Store(true)
	logger.InfoC("gateway", "Gateway worker started")

	for w.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg, ok := w.bus.ConsumeInbound(ctx)
			if !ok {
				continue
			}

			reply := w.Process(ctx, msg)
			if reply == "" {
				continue
			}

			w.bus.PublishOutbound(bus.OutboundMessage{
				Platform: msg.Platform,
				ChatID:   msg.ChatID,
				Content:  reply,
			})
		}
	}

	return nil
}

func (w *Worker) Stop() {
	w.running.Store(false)
	logger.InfoC("gateway", "Gateway worker stopped")
}

// Process handles one inbound message and returns the reply text, empty
// when the engine stays silent. Exposed so the REPL and web surface can
// reuse the exact pipeline without going through the bus.
func (w *Worker) Process(ctx context.Context, msg bus.InboundMessage) string {
	if reply, handled := w.handleCommand(ctx, msg); handled {
		return reply
	}

	reply, ok := w.brain.HandleIncoming(ctx, msg.Author, msg.Content, msg.Platform, msg.Forced)
	if !ok {
		return ""
	}
	return reply
}

func (w *Worker) handleCommand(ctx context.Context, msg bus.InboundMessage) (string, bool) {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, "!") {
		return "", false
	}

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return "", false
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "!mika":
		text := strings.TrimSpace(strings.TrimPrefix(content, parts[0]))
		if text == "" {
			text = "say hello to the chat!"
		}
		reply, ok := w.brain.HandleIncoming(ctx, msg.Author, text, msg.Platform, true)
		if !ok {
			return "", true
		}
		return reply, true

	case "!status":
		st := w.brain.Status()
		return fmt.Sprintf("%s is up! context: %d messages, responses last minute: %d/%d, users known: %d",
			st.BotName, st.HistoryLen, st.Arbiter.ResponsesLastMinute, st.Arbiter.MaxPerMinute, st.Users.TotalUsers), true

	case "!clear":
		if !w.isAdmin(msg.Author) {
			return "Only admins can do that!", true
		}
		w.brain.ClearContext()
		return "Context cleared, fresh start~", true

	case "!learn":
		if !w.isAdmin(msg.Author) {
			return "Only admins can do that!", true
		}
		if len(args) < 2 {
			return "Usage: !learn <user> <fact>", true
		}
		target := args[0]
		fact := strings.Join(args[1:], " ")
		w.brain.Learn(target, fact)
		return fmt.Sprintf("Got it! I'll remember that about %s.", users.Normalize(target)), true
	}

	// unknown bang-commands fall through to the normal pipeline, they
	// may still mention the agent
	return "", false
}

func (w *Worker) isAdmin(author string) bool {
	name := users.Normalize(author)
	for _, admin := range w.agent.Admins {
		if users.Normalize(admin) == name {
			return true
		}
	}
	return false
}
