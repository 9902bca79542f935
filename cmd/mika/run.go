package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/moekyun/mika/pkg/arbiter"
	"github.com/moekyun/mika/pkg/brain"
	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/channels"
	"github.com/moekyun/mika/pkg/config"
	"github.com/moekyun/mika/pkg/gateway"
	"github.com/moekyun/mika/pkg/history"
	"github.com/moekyun/mika/pkg/logger"
	"github.com/moekyun/mika/pkg/persona"
	"github.com/moekyun/mika/pkg/providers"
	"github.com/moekyun/mika/pkg/sched"
	"github.com/moekyun/mika/pkg/storage"
	"github.com/moekyun/mika/pkg/users"
	"github.com/moekyun/mika/pkg/web"
)

// engine bundles the wired core shared by the gateway and the REPL.
type engine struct {
	cfg    *config.Config
	store  storage.Store
	brain  *brain.Brain
	bus    *bus.MessageBus
	worker *gateway.Worker
}

func buildEngine(cfg *config.Config, persistent bool) (*engine, error) {
	var store storage.Store
	if persistent {
		var err error
		store, err = openStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	provider, err := providers.NewChatClient(
		cfg.Provider.APIBase,
		cfg.Provider.APIKey,
		cfg.Provider.Model,
		cfg.Provider.Temperature,
		cfg.Provider.MaxTokens,
		time.Duration(cfg.Provider.TimeoutSecs)*time.Second,
	)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	arb := arbiter.New(
		cfg.Agent.BotName,
		cfg.Agent.Aliases,
		time.Duration(cfg.Agent.CooldownSeconds*float64(time.Second)),
		cfg.Agent.MaxPerMinute,
	)
	b := brain.New(
		cfg.Agent.BotName,
		arb,
		history.New(cfg.Agent.ContextSize, store),
		users.New(store),
		persona.NewComposer(cfg.Agent.SpecialUsers),
		provider,
	)

	messageBus := bus.NewMessageBus()
	return &engine{
		cfg:    cfg,
		store:  store,
		brain:  b,
		bus:    messageBus,
		worker: gateway.NewWorker(cfg, messageBus, b),
	}, nil
}

func (e *engine) Close() {
	e.bus.Close()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			logger.WarnCF("main", "Failed to close store", map[string]any{"error": err.Error()})
		}
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	dataDir := cfg.DataDirPath()
	switch cfg.Storage.Backend {
	case "sqlite":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.NewSQLiteStore(filepath.Join(dataDir, "mika.db"))
	default:
		return storage.NewJSONStore(dataDir)
	}
}

func loadAndPrepare(path string, debug bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.SetDebug(debug || cfg.Debug)
	return cfg, nil
}

func runOnboard(path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Println("Aborted.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your API key to", path)
	fmt.Println("     Get one at: https://console.groq.com")
	fmt.Println("  2. Add a Twitch token (channels.twitch) or Discord token (channels.discord)")
	fmt.Println("  3. Try it locally: mika chat")
	fmt.Println("  4. Run for real: mika gateway")
	fmt.Println("  5. Check readiness: mika status")
	return nil
}

func runGateway(path string, debug bool) error {
	cfg, err := loadAndPrepare(path, debug)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	channelManager, err := channels.NewManager(cfg, eng.bus)
	if err != nil {
		return err
	}

	scheduler := sched.New()
	if expr := strings.TrimSpace(cfg.Scheduler.ResetCron); expr != "" {
		if err := scheduler.Add("context-reset", expr, eng.brain.ClearContext); err != nil {
			return err
		}
	}
	if expr := strings.TrimSpace(cfg.Scheduler.StatusCron); expr != "" {
		if err := scheduler.Add("status-log", expr, func() {
			st := eng.brain.Status()
			logger.InfoCF("main", "Engine status", map[string]any{
				"history_len":           st.HistoryLen,
				"responses_last_minute": st.Arbiter.ResponsesLastMinute,
				"users":                 st.Users.TotalUsers,
			})
		}); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		return err
	}

	webServer := web.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, eng.worker, eng.brain)
	go func() {
		if err := webServer.ListenAndServe(); err != nil {
			logger.ErrorCF("web", "HTTP surface error", map[string]any{"error": err.Error()})
		}
	}()

	go eng.worker.Run(ctx)
	go scheduler.Start(ctx)

	fmt.Printf("✓ Gateway started, HTTP surface on http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	eng.worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnCF("web", "HTTP shutdown error", map[string]any{"error": err.Error()})
	}
	channelManager.StopAll(shutdownCtx)
	fmt.Println("✓ Gateway stopped")
	return nil
}

func runChat(path, author string, debug bool) error {
	cfg, err := loadAndPrepare(path, debug)
	if err != nil {
		return err
	}

	// REPL is a scratch session: in-memory stores only
	eng, err := buildEngine(cfg, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	fmt.Printf("Chatting with %s. Type 'exit' to quit; '!status' and '!clear' work here too.\n", cfg.Agent.BotName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", author),
		HistoryFile:     filepath.Join(os.TempDir(), ".mika_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		reply := eng.worker.Process(context.Background(), bus.InboundMessage{
			Platform: bus.PlatformCLI,
			Author:   author,
			Content:  input,
			Forced:   true,
		})
		if reply == "" {
			continue
		}
		fmt.Printf("\n%s: %s\n\n", cfg.Agent.BotName, reply)
	}
}

func runStatus(path string) error {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n", formatVersion())
	fmt.Println()

	check := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "not set"
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Println("Config:", path, "✓")
	} else {
		fmt.Println("Config:", path, "✗ (run: mika onboard)")
	}
	fmt.Println("Data dir:", cfg.DataDirPath(), "("+cfg.Storage.Backend+")")
	fmt.Println()

	fmt.Printf("Bot name: %s\n", cfg.Agent.BotName)
	fmt.Printf("Aliases: %s\n", strings.Join(cfg.Agent.Aliases, ", "))
	fmt.Printf("Model: %s\n", cfg.Provider.Model)

	apiReady := strings.TrimSpace(cfg.Provider.APIKey) != ""
	twitchReady := strings.TrimSpace(cfg.Channels.Twitch.Token) != ""
	discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""

	fmt.Println("Provider API key:", check(apiReady))
	fmt.Println("Twitch token:", check(twitchReady))
	fmt.Println("Discord token:", check(discordReady))
	fmt.Println("Chat ready:", check(apiReady))
	fmt.Println("Gateway ready:", check(apiReady && (twitchReady || discordReady)))
	return nil
}
