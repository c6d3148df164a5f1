package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robalyx/warden/internal/automod/engine"
	"github.com/robalyx/warden/internal/automod/rule"
	"github.com/robalyx/warden/internal/bot"
	"github.com/robalyx/warden/internal/guildstate"
	"github.com/robalyx/warden/internal/modlog"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// LogDir specifies where bot log files are stored.
	LogDir = "logs/bot_logs"

	// shutdownTimeout bounds the graceful shutdown of the gateway and servers.
	shutdownTimeout = 30 * time.Second
)

var (
	ErrInvalidConfigs = errors.New("invalid guild configurations")
	ErrArgsRequired   = errors.New("GUILD_ID and USER_ID arguments required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "warden",
		Usage: "Configuration-driven guild moderation bot",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to Discord and moderate configured guilds",
				Action: runBot,
			},
			{
				Name:  "check",
				Usage: "Validate every guild configuration without connecting to Discord",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Guild configuration directory (defaults to the configured one)",
					},
				},
				Action: checkConfigs,
			},
			{
				Name:      "modlog",
				Usage:     "List notes and warnings recorded for a member",
				ArgsUsage: "GUILD_ID USER_ID",
				Action:    listModlog,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runBot starts the bot and blocks until an interrupt signal arrives.
func runBot(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Config.Validate(); err != nil {
		app.Cleanup(ctx)
		return err
	}

	discordBot, err := bot.New(
		app.Config.Discord.Token,
		app.States,
		app.Modlog,
		app.Config.Moderation.WatchConfigs,
		app.Logger,
	)
	if err != nil {
		app.Cleanup(ctx)
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if err := discordBot.Start(ctx); err != nil {
		app.Cleanup(ctx)
		return fmt.Errorf("failed to start bot: %w", err)
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	discordBot.Close(shutdownCtx)
	app.Cleanup(shutdownCtx)

	return nil
}

// checkConfigs builds the state of every guild document and reports failures.
func checkConfigs(ctx context.Context, c *cli.Command) error {
	dir := c.String("dir")
	if dir == "" {
		cfg, _, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dir = cfg.Moderation.GuildConfigDir
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	loader := guildstate.NewFileLoader(dir, logger)
	states := guildstate.NewManager(loader, logger, logger, engine.Modules()...)

	ids, err := loader.GuildIDs()
	if err != nil {
		return fmt.Errorf("failed to list guild configurations: %w", err)
	}

	failed := 0
	for _, id := range ids {
		state, err := states.CreateState(ctx, id)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", loader.Path(id), err)
			continue
		}

		rules, _ := guildstate.ModuleState[[]*rule.Definition](state, engine.ModerationModuleName)
		responders, _ := guildstate.ModuleState[[]*engine.Responder](state, engine.ResponderModuleName)
		fmt.Printf("OK   %s: %d moderators, %d rules, %d responders\n",
			loader.Path(id), len(state.Moderators), len(rules), len(responders))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidConfigs, failed, len(ids))
	}

	return nil
}

// listModlog prints the notes and warnings of a member.
func listModlog(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return ErrArgsRequired
	}

	guildID, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid guild id: %w", err)
	}

	userID, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := modlog.Open(cfg.Moderation.ModlogPath)
	if err != nil {
		return fmt.Errorf("failed to open modlog: %w", err)
	}
	defer store.Close()

	entries, err := store.List(ctx, guildID, userID)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No entries recorded")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %-4s  %s: %s\n",
			entry.CreatedAt.Format(time.RFC3339), entry.Kind, entry.Source, entry.Text)
	}

	return nil
}
