package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/config"
	"github.com/moekyun/mika/pkg/logger"
)

// Manager owns the configured connectors and drains the outbound bus
// into them.
type Manager struct {
	channels     map[bus.Platform]Channel
	bus          *bus.MessageBus
	config       *config.Config
	dispatchTask *asyncTask
	mu           sync.RWMutex
}

type asyncTask struct {
	cancel context.CancelFunc
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[bus.Platform]Channel),
		bus:      messageBus,
		config:   cfg,
	}

	if err := m.initChannels(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initChannels() error {
	logger.InfoC("channels", "Initializing channel manager")

	if strings.TrimSpace(m.config.Channels.Twitch.Token) != "" {
		twitch, err := NewTwitchChannel(m.config.Channels.Twitch, m.bus)
		if err != nil {
			return fmt.Errorf("initialize Twitch channel: %w", err)
		}
		m.channels[bus.PlatformTwitch] = twitch
		logger.InfoC("channels", "Twitch channel initialized")
	}

	if strings.TrimSpace(m.config.Channels.Discord.Token) != "" {
		discord, err := NewDiscordChannel(m.config.Channels.Discord, m.bus)
		if err != nil {
			return fmt.Errorf("initialize Discord channel: %w", err)
		}
		m.channels[bus.PlatformDiscord] = discord
		logger.InfoC("channels", "Discord channel initialized")
	}

	if len(m.channels) == 0 {
		return fmt.Errorf("no channel configured: set a Twitch or Discord token")
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]any{
		"enabled_channels": len(m.channels),
	})
	return nil
}

func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	channelsCopy := make(map[bus.Platform]Channel, len(m.channels))
	for platform, channel := range m.channels {
		channelsCopy[platform] = channel
	}
	m.mu.RUnlock()

	logger.InfoC("channels", "Starting all channels")

	var started []bus.Platform
	var startErrors []string
	for platform, channel := range channelsCopy {
		logger.InfoCF("channels", "Starting channel", map[string]any{"channel": channel.Name()})
		if err := channel.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]any{
				"channel": channel.Name(),
				"error":   err.Error(),
			})
			startErrors = append(startErrors, fmt.Sprintf("%s: %v", channel.Name(), err))
			continue
		}
		started = append(started, platform)
	}

	if len(startErrors) > 0 {
		for _, platform := range started {
			channel := channelsCopy[platform]
			if err := channel.Stop(ctx); err != nil {
				logger.WarnCF("channels", "Failed to stop partially-started channel", map[string]any{
					"channel": channel.Name(),
					"error":   err.Error(),
				})
			}
		}
		return fmt.Errorf("failed to start channels: %s", strings.Join(startErrors, "; "))
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.dispatchTask != nil {
		m.dispatchTask.cancel()
	}
	m.dispatchTask = &asyncTask{cancel: cancel}
	m.mu.Unlock()

	go m.dispatchOutbound(dispatchCtx)

	logger.InfoCF("channels", "All channels started", map[string]any{"count": len(started)})
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.InfoC("channels", "Stopping all channels")

	if m.dispatchTask != nil {
		m.dispatchTask.cancel()
		m.dispatchTask = nil
	}

	for _, channel := range m.channels {
		if err := channel.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]any{
				"channel": channel.Name(),
				"error":   err.Error(),
			})
		}
	}

	logger.InfoC("channels", "All channels stopped")
	return nil
}

func (m *Manager) dispatchOutbound(ctx context.Context) {
	logger.InfoC("channels", "Outbound dispatcher started")

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("channels", "Outbound dispatcher stopped")
			return
		default:
			msg, ok := m.bus.ConsumeOutbound(ctx)
			if !ok {
				continue
			}

			m.mu.RLock()
			channel, exists := m.channels[msg.Platform]
			m.mu.RUnlock()

			if !exists {
				logger.WarnCF("channels", "No channel for outbound message", map[string]any{
					"platform": string(msg.Platform),
				})
				continue
			}

			if err := channel.Send(ctx, msg); err != nil {
				logger.ErrorCF("channels", "Error sending message to channel", map[string]any{
					"channel": channel.Name(),
					"error":   err.Error(),
				})
			}
		}
	}
}

func (m *Manager) GetChannel(platform bus.Platform) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[platform]
	return channel, ok
}

func (m *Manager) GetStatus() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]any)
	for _, channel := range m.channels {
		status[channel.Name()] = map[string]any{
			"enabled": true,
			"running": channel.IsRunning(),
		}
	}
	return status
}
