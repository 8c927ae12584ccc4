package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pocketchatroot "github.com/set-night/pocketchat"
	"github.com/set-night/pocketchat/internal/config"
	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
	"github.com/set-night/pocketchat/internal/repository"
	"github.com/set-night/pocketchat/internal/service"
)

const usage = `pocketchat - local multi-session LLM chat

Usage:
  pocketchat list                         list sessions
  pocketchat new <name> [flags]           create a session
      -model <id>       model identifier (default from config)
      -system <prompt>  system prompt
      -no-stream        disable token streaming
  pocketchat chat <name>                  open a session and chat
  pocketchat models                       list available models
  pocketchat delete <name>                delete a session and its history
  pocketchat delete-all                   delete every session
  pocketchat set-key <key>                store the provider API key
  pocketchat usage <name>                 show accumulated usage
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationsFS, err := fs.Sub(pocketchatroot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(db, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := kvstore.NewSQLite(db)
	app := &app{
		cfg:      cfg,
		sessions: repository.NewSessionRepository(store),
		logs:     repository.NewMessageLogRepository(store),
		keys:     repository.NewAPIKeyRepository(store),
		usage:    repository.NewUsageRepository(store),
	}
	app.client = service.NewOpenRouterService(cfg.OpenRouterBaseURL, cfg.Provider, app.keys)
	app.tracker = service.NewUsageTracker(app.usage, app.client)

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	sessions *repository.SessionRepository
	logs     *repository.MessageLogRepository
	keys     *repository.APIKeyRepository
	usage    *repository.UsageRepository
	client   *service.OpenRouterService
	tracker  *service.UsageTracker
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "list":
		return a.list(ctx)
	case "new":
		return a.newSession(ctx, args)
	case "chat":
		return a.chat(ctx, args)
	case "models":
		return a.listModels(ctx)
	case "delete":
		return a.deleteSession(ctx, args)
	case "delete-all":
		return a.sessions.DeleteAll(ctx)
	case "set-key":
		return a.setKey(ctx, args)
	case "usage":
		return a.showUsage(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) list(ctx context.Context) error {
	names, err := a.sessions.ListNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func (a *app) listModels(ctx context.Context) error {
	models, err := a.client.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.IsFree() {
			fmt.Printf("%s\tfree\n", m.ID)
		} else {
			fmt.Printf("%s\t$%.2f/$%.2f per 1M tokens\n", m.ID, m.PromptPrice, m.CompletionPrice)
		}
	}
	return nil
}

func (a *app) newSession(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("new", flag.ExitOnError)
	model := flags.String("model", config.DefaultModel, "model identifier")
	system := flags.String("system", "", "system prompt")
	noStream := flags.Bool("no-stream", false, "disable token streaming")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: pocketchat new <name> [flags]")
	}

	name := flags.Arg(0)
	err := a.sessions.Create(ctx, name, domain.SessionSettings{
		ModelName:    *model,
		Streaming:    !*noStream,
		SystemPrompt: *system,
	})
	if errors.Is(err, domain.ErrSessionExists) {
		return fmt.Errorf("session %q already exists", name)
	}
	return err
}

func (a *app) deleteSession(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pocketchat delete <name>")
	}
	return a.sessions.Delete(ctx, args[0])
}

func (a *app) setKey(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pocketchat set-key <key>")
	}
	return a.keys.Set(ctx, a.cfg.Provider, args[0])
}

func (a *app) showUsage(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pocketchat usage <name>")
	}
	totals, err := a.usage.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("requests: %d\ntokens: %d prompt, %d completion\ncost: $%s\n",
		totals.Requests, totals.PromptTokens, totals.CompletionTokens, totals.TotalCost.StringFixed(6))
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pocketchat chat <name>")
	}
	name := args[0]

	session, err := service.OpenChatSession(ctx, name, a.sessions, a.logs, a.client, a.tracker)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("session %q does not exist, create it with: pocketchat new %s", name, name)
	}
	if err != nil {
		return err
	}

	for _, m := range session.Transcript() {
		printMessage(m)
	}

	session.OnToken(func(delta string) {
		fmt.Print(delta)
	})

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("%s> ", name)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit", line == "/exit":
			return nil
		default:
			if err := a.send(ctx, session, line); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Printf("%s> ", name)
	}
	return scanner.Err()
}

func (a *app) send(ctx context.Context, session *service.ChatSession, line string) error {
	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	ai, err := session.Send(reqCtx, line)
	if err != nil {
		return err
	}
	if session.Settings().Streaming {
		// Tokens were already printed as they arrived.
		fmt.Println()
	} else {
		printMessage(ai)
	}
	return nil
}

func printMessage(m domain.Message) {
	switch m.Role {
	case domain.RoleHuman:
		fmt.Printf("you: %s\n", m.Content)
	case domain.RoleAI:
		fmt.Printf("ai:  %s\n", m.Content)
	default:
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}
}
