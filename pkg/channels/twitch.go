package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/config"
	"github.com/moekyun/mika/pkg/logger"
)

const (
	twitchIRCURL = "wss://irc-ws.chat.twitch.tv:443"

	// Twitch caps IRC lines at 500 bytes including the command; keep
	// reply chunks well under that.
	twitchMessageLimit = 450

	twitchReconnectDelay = 5 * time.Second
	twitchDialTimeout    = 15 * time.Second
)

// TwitchChannel speaks Twitch chat over its IRC-on-WebSocket gateway.
type TwitchChannel struct {
	*BaseChannel
	config  config.TwitchConfig
	channel string

	connMu  sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewTwitchChannel(cfg config.TwitchConfig, messageBus *bus.MessageBus) (*TwitchChannel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("twitch token is required")
	}
	if strings.TrimSpace(cfg.Nick) == "" {
		return nil, fmt.Errorf("twitch nick is required")
	}
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if channel == "" {
		return nil, fmt.Errorf("twitch channel is required")
	}

	return &TwitchChannel{
		BaseChannel: NewBaseChannel("twitch", bus.PlatformTwitch, messageBus),
		config:      cfg,
		channel:     channel,
	}, nil
}

func (c *TwitchChannel) Start(ctx context.Context) error {
	logger.InfoC("twitch", "Starting Twitch connector")

	if err := c.connect(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})
	c.setRunning(true)

	go c.readLoop(runCtx)

	logger.InfoCF("twitch", "Twitch connector ready", map[string]any{
		"nick":    c.config.Nick,
		"channel": c.channel,
	})
	return nil
}

func (c *TwitchChannel) Stop(ctx context.Context) error {
	logger.InfoC("twitch", "Stopping Twitch connector")
	c.setRunning(false)

	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()

	if c.stopped != nil {
		select {
		case <-c.stopped:
		case <-time.After(3 * time.Second):
			logger.WarnC("twitch", "Timed out waiting for read loop to stop")
		case <-ctx.Done():
		}
	}
	return nil
}

func (c *TwitchChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("twitch connector not running")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	target := strings.TrimPrefix(msg.ChatID, "#")
	if target == "" {
		target = c.channel
	}

	for _, chunk := range splitMessage(msg.Content, twitchMessageLimit) {
		// IRC is line-oriented; a newline inside PRIVMSG would be a
		// protocol error.
		chunk = strings.ReplaceAll(chunk, "\n", " ")
		if err := c.writeLine(fmt.Sprintf("PRIVMSG #%s :%s", target, chunk)); err != nil {
			return fmt.Errorf("send twitch message: %w", err)
		}
	}
	return nil
}

func (c *TwitchChannel) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, twitchDialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, twitchIRCURL, nil)
	if err != nil {
		return fmt.Errorf("dial twitch IRC gateway: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	token := c.config.Token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	for _, line := range []string{
		"PASS " + token,
		"NICK " + strings.ToLower(c.config.Nick),
		"JOIN #" + c.channel,
	} {
		if err := c.writeLine(line); err != nil {
			c.closeConn()
			return fmt.Errorf("twitch login: %w", err)
		}
	}
	return nil
}

func (c *TwitchChannel) readLoop(ctx context.Context) {
	defer close(c.stopped)

	for {
		if ctx.Err() != nil {
			return
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WarnCF("twitch", "Connection lost, reconnecting", map[string]any{
				"error": err.Error(),
			})
			c.closeConn()

			select {
			case <-ctx.Done():
				return
			case <-time.After(twitchReconnectDelay):
			}
			if err := c.connect(ctx); err != nil {
				logger.ErrorCF("twitch", "Reconnect failed", map[string]any{"error": err.Error()})
			}
			continue
		}

		for _, line := range strings.Split(string(payload), "\r\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			c.handleLine(line)
		}
	}
}

func (c *TwitchChannel) handleLine(line string) {
	msg := parseIRCLine(line)

	switch msg.Command {
	case "PING":
		if err := c.writeLine("PONG :" + msg.Text); err != nil {
			logger.WarnCF("twitch", "Failed to answer PING", map[string]any{"error": err.Error()})
		}
	case "PRIVMSG":
		if msg.Nick == "" || msg.Text == "" {
			return
		}
		logger.DebugCF("twitch", "Received message", map[string]any{
			"author":  msg.Nick,
			"channel": msg.Target,
		})
		c.HandleMessage(msg.Nick, msg.Target, msg.Text)
	case "NOTICE":
		logger.InfoCF("twitch", "Server notice", map[string]any{"text": msg.Text})
	}
}

func (c *TwitchChannel) writeLine(line string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (c *TwitchChannel) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

type ircMessage struct {
	Nick    string
	Command string
	Target  string
	Text    string
}

// parseIRCLine parses one raw IRC line of the shape
// [@tags] [:prefix] COMMAND [params] [:trailing].
func parseIRCLine(line string) ircMessage {
	var msg ircMessage

	// IRCv3 tags, present once capabilities are negotiated
	if strings.HasPrefix(line, "@") {
		if idx := strings.Index(line, " "); idx > 0 {
			line = line[idx+1:]
		} else {
			return msg
		}
	}

	if strings.HasPrefix(line, ":") {
		idx := strings.Index(line, " ")
		if idx < 0 {
			return msg
		}
		prefix := line[1:idx]
		if bang := strings.Index(prefix, "!"); bang > 0 {
			msg.Nick = prefix[:bang]
		} else {
			msg.Nick = prefix
		}
		line = line[idx+1:]
	}

	if idx := strings.Index(line, " :"); idx >= 0 {
		msg.Text = line[idx+2:]
		line = line[:idx]
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return msg
	}
	msg.Command = strings.ToUpper(parts[0])
	if len(parts) > 1 {
		msg.Target = strings.TrimPrefix(parts[1], "#")
	}
	return msg
}
