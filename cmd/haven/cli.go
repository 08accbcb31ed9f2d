package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/havenlabs/haven/pkg/bus"
	"github.com/havenlabs/haven/pkg/channels"
	"github.com/havenlabs/haven/pkg/chat"
	"github.com/havenlabs/haven/pkg/checkin"
	"github.com/havenlabs/haven/pkg/config"
	"github.com/havenlabs/haven/pkg/gateway"
	"github.com/havenlabs/haven/pkg/logger"
	"github.com/havenlabs/haven/pkg/memory"
	"github.com/havenlabs/haven/pkg/providers"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "haven",
		Short: "Wellness companion with memory, onboarding, and provider failover",
		Long: strings.TrimSpace(`haven is a stateful wellness companion.

It learns who you are over a gentle onboarding conversation, remembers what
you share, and keeps responding even when every model provider is down.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newMemoriesCommand())
	root.AddCommand(newCheckinCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(config.DefaultConfigPath())
}

func openStore(cfg *config.Config, anonymous bool) (memory.Store, error) {
	if anonymous {
		return memory.NewInMemoryStore(), nil
	}
	return memory.OpenStore(cfg.Storage.Driver, cfg.DatabasePath(), cfg.Storage.PostgresDSN)
}

func buildEngine(cfg *config.Config, store memory.Store, anonymous bool) *chat.Engine {
	orchestrator := providers.NewOrchestrator(
		providers.BuildProviders(cfg),
		time.Duration(cfg.Companion.ProviderTimeoutSec)*time.Second,
		cfg.Companion.MaxHistoryMessages,
	)
	return chat.NewEngine(store, orchestrator, chat.EngineOptions{Anonymous: anonymous})
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Write a default ~/.haven/config.json",
		Example: "  haven onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Printf("Config already exists at %s\n", path)
				return nil
			}
			if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("Wrote default config to %s\n", path)
			fmt.Println("Set HAVEN_PROVIDERS_OPENAI_API_KEY (or edit the file) to enable providers.")
			return nil
		},
	}
}

func newChatCommand() *cobra.Command {
	var (
		message   string
		userID    string
		anonymous bool
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the companion in the terminal",
		Example: strings.Join([]string{
			"  haven chat",
			"  haven chat --message \"rough day\"",
			"  haven chat --anonymous",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := openStore(cfg, anonymous)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			engine := buildEngine(cfg, store, anonymous)

			if strings.TrimSpace(message) != "" {
				fmt.Printf("\n%s %s\n", appName, engine.GetResponse(cmd.Context(), message, userID, nil))
				return nil
			}

			return runREPL(cmd.Context(), engine, userID, cfg.Companion.MaxHistoryMessages)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "User ID the conversation is keyed by")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Keep nothing: in-memory records, no exchange log")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runREPL(ctx context.Context, engine *chat.Engine, userID string, maxHistory int) error {
	fmt.Printf("%s Interactive session (Ctrl+C to exit)\n\n", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".haven_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	if maxHistory <= 0 {
		maxHistory = 10
	}
	var history []providers.Message

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nTake care.")
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
			fmt.Println("Take care.")
			return nil
		}

		response := engine.GetResponse(ctx, input, userID, history)
		fmt.Printf("\n%s %s\n\n", appName, response)

		history = append(history,
			providers.Message{Role: providers.RoleUser, Content: input},
			providers.Message{Role: providers.RoleAssistant, Content: response},
		)
		if len(history) > maxHistory*2 {
			history = history[len(history)-maxHistory*2:]
		}
	}
}

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the Discord gateway",
		Example: "  haven gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				logger.SetLevel(logger.DEBUG)
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if strings.TrimSpace(cfg.Channels.Discord.Token) == "" {
				return fmt.Errorf("channels.discord.token is required for the gateway")
			}

			store, err := openStore(cfg, false)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			engine := buildEngine(cfg, store, false)

			msgBus := bus.NewMessageBus()
			defer msgBus.Close()

			manager, err := channels.NewManager(cfg, msgBus)
			if err != nil {
				return fmt.Errorf("create channel manager: %w", err)
			}

			loop := gateway.NewLoop(cfg, msgBus, engine, store)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := manager.StartAll(ctx); err != nil {
				return fmt.Errorf("start channels: %w", err)
			}
			go loop.Run(ctx)

			if cfg.CheckIn.Enabled {
				scheduler, err := checkin.NewScheduler(cfg.CheckIn, func(ctx context.Context, message string) error {
					return manager.SendToChannel(ctx, "discord", cfg.CheckIn.ChannelID, message)
				})
				if err != nil {
					return fmt.Errorf("check-in scheduler: %w", err)
				}
				go scheduler.Run(ctx)
				fmt.Printf("✓ Check-ins scheduled: %s\n", cfg.CheckIn.Schedule)
			}

			fmt.Println("✓ Gateway started")
			fmt.Println("Press Ctrl+C to stop")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			fmt.Println("\nShutting down...")
			cancel()
			loop.Stop()
			manager.StopAll(context.Background())
			fmt.Println("✓ Gateway stopped")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newMemoriesCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect and manage what the companion remembers",
	}
	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "local", "User ID the memories belong to")

	list := &cobra.Command{
		Use:     "list",
		Short:   "List stored memories, most important first",
		Example: "  haven memories list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			memories, err := store.ListMemories(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("list memories: %w", err)
			}
			if len(memories) == 0 {
				fmt.Println("Nothing remembered yet.")
				return nil
			}
			for _, m := range memories {
				fmt.Printf("%s  [%s] %s = %s (importance %d, referenced %d times)\n",
					m.ID, m.Type, m.Key, m.Value, m.Importance, m.ReferenceCount)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm <memory-id>",
		Short:   "Forget one memory",
		Args:    cobra.ExactArgs(1),
		Example: "  haven memories rm 01J3Z...",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.DeleteMemory(cmd.Context(), userID, args[0])
			if err != nil {
				return fmt.Errorf("delete memory: %w", err)
			}
			if !deleted {
				return fmt.Errorf("no memory with id %s", args[0])
			}
			fmt.Println("Forgotten.")
			return nil
		},
	}

	cmd.AddCommand(list, rm)
	return cmd
}

func newCheckinCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Inspect the proactive check-in schedule",
	}

	next := &cobra.Command{
		Use:     "next",
		Short:   "Show when the next check-in would fire",
		Example: "  haven checkin next",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			scheduler, err := checkin.NewScheduler(cfg.CheckIn, nil)
			if err != nil {
				return err
			}
			tick, err := scheduler.Next(time.Now())
			if err != nil {
				return err
			}
			if !cfg.CheckIn.Enabled {
				fmt.Println("Check-ins are disabled (checkin.enabled = false).")
			}
			fmt.Printf("Next check-in: %s\n", tick.Format(time.RFC1123))
			fmt.Printf("Message: %s\n", scheduler.Message())
			return nil
		},
	}

	cmd.AddCommand(next)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
