package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/config"
)

func testTwitchConfig(token, nick, channel string) config.TwitchConfig {
	return config.TwitchConfig{Token: token, Nick: nick, Channel: channel}
}

func TestParseIRCLine_PrivMsg(t *testing.T) {
	msg := parseIRCLine(":somefan!somefan@somefan.tmi.twitch.tv PRIVMSG #lacabane :hey mika, you there?")

	assert.Equal(t, "somefan", msg.Nick)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, "lacabane", msg.Target)
	assert.Equal(t, "hey mika, you there?", msg.Text)
}

func TestParseIRCLine_Ping(t *testing.T) {
	msg := parseIRCLine("PING :tmi.twitch.tv")

	assert.Equal(t, "PING", msg.Command)
	assert.Equal(t, "tmi.twitch.tv", msg.Text)
	assert.Empty(t, msg.Nick)
}

func TestParseIRCLine_WithTags(t *testing.T) {
	msg := parseIRCLine("@badge-info=;color=#FF0000 :viewer!viewer@viewer.tmi.twitch.tv PRIVMSG #room :gg")

	assert.Equal(t, "viewer", msg.Nick)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, "gg", msg.Text)
}

func TestParseIRCLine_ServerNotice(t *testing.T) {
	msg := parseIRCLine(":tmi.twitch.tv NOTICE * :Login authentication failed")

	assert.Equal(t, "NOTICE", msg.Command)
	assert.Equal(t, "Login authentication failed", msg.Text)
}

func TestParseIRCLine_Garbage(t *testing.T) {
	assert.Empty(t, parseIRCLine(":lonelyprefix").Command)
	assert.Empty(t, parseIRCLine("@tags-only").Command)
}

func TestNewTwitchChannelValidation(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	_, err := NewTwitchChannel(testTwitchConfig("", "nick", "room"), mb)
	assert.ErrorContains(t, err, "token")

	_, err = NewTwitchChannel(testTwitchConfig("tok", "", "room"), mb)
	assert.ErrorContains(t, err, "nick")

	_, err = NewTwitchChannel(testTwitchConfig("tok", "nick", ""), mb)
	assert.ErrorContains(t, err, "channel")

	ch, err := NewTwitchChannel(testTwitchConfig("tok", "nick", "#Room"), mb)
	require.NoError(t, err)
	assert.Equal(t, "room", ch.channel)
	assert.False(t, ch.IsRunning())
}

func TestBaseChannelPublishesInbound(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	base := NewBaseChannel("twitch", bus.PlatformTwitch, mb)
	base.HandleMessage("somefan", "room", "hello mika")
	base.HandleMessage("", "room", "no author, dropped")
	base.HandleMessage("somefan", "room", "")

	msg, ok := mb.ConsumeInbound(context.Background())
	require.True(t, ok)
	assert.Equal(t, bus.PlatformTwitch, msg.Platform)
	assert.Equal(t, "somefan", msg.Author)
	assert.Equal(t, "hello mika", msg.Content)
	assert.Equal(t, "room", msg.ChatID)

	assert.Equal(t, uint64(0), mb.DroppedInbound())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 100))

	long := ""
	for i := 0; i < 60; i++ {
		long += "word "
	}
	chunks := splitMessage(long, 100)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}
