// Package channels holds the platform connectors. Each connector
// normalizes platform events into inbound bus messages and delivers
// outbound replies back to its platform.
package channels

import (
	"context"

	"github.com/moekyun/mika/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
}

type BaseChannel struct {
	bus      *bus.MessageBus
	name     string
	platform bus.Platform
	running  bool
}

func NewBaseChannel(name string, platform bus.Platform, messageBus *bus.MessageBus) *BaseChannel {
	return &BaseChannel{
		bus:      messageBus,
		name:     name,
		platform: platform,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

// HandleMessage publishes a normalized platform event to the inbound
// bus. Connectors never talk to the engine directly.
func (c *BaseChannel) HandleMessage(author, chatID, content string) {
	if author == "" || content == "" {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Platform: c.platform,
		Author:   author,
		Content:  content,
		ChatID:   chatID,
	})
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}
