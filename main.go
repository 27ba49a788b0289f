package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"boltalka/internal/api"
	"boltalka/internal/auth"
	"boltalka/internal/chat"
	"boltalka/internal/config"
	"boltalka/internal/content"
	"boltalka/internal/models"
	"boltalka/internal/storage"
	"boltalka/internal/store"
)

func run(ctx context.Context) error {
	email := flag.String("email", "", "Email for login")
	password := flag.String("password", "", "Password for login")
	register := flag.Bool("register", false, "Register a new account instead of logging in")
	username := flag.String("username", "", "Username for registration")
	fullName := flag.String("full-name", "", "Full name for registration")
	room := flag.String("room", "", "Room to join (defaults to BOLTALKA_ROOM)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	apiClient, err := api.New(cfg.ServerURL)
	if err != nil {
		return err
	}

	db, err := storage.NewBboltStorage(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := apiClient.Ping(ctx); err != nil {
		logger.Warn("server health check failed", "server", cfg.ServerURL, "error", err)
	}

	authService := auth.NewService(apiClient, db, logger)

	user, err := authService.Resume(ctx)
	if err != nil {
		switch {
		case *register:
			user, err = authService.Register(ctx, models.RegisterRequest{
				Username: *username,
				Email:    *email,
				Password: *password,
				FullName: *fullName,
			})
		case *email != "" && *password != "":
			user, err = authService.Login(ctx, *email, *password)
		default:
			return errors.New("no saved session: provide -email and -password, or -register")
		}
		if err != nil {
			return err
		}
	}
	logger.Info("authenticated", "username", user.Username, "user_id", user.ID)

	chatClient := chat.NewClient(chat.Config{
		ServerURL:        cfg.ServerURL,
		Identity:         &user,
		Token:            authService.Token(),
		Fetcher:          apiClient,
		PageSize:         cfg.HistoryPageSize,
		TypingInterval:   cfg.TypingInterval,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Logger:           logger,
	})
	defer chatClient.Leave()

	roomID := cfg.Room
	if *room != "" {
		roomID = *room
	}

	p := newPrinter(os.Stdout, user.ID)
	activation, err := chatClient.Join(ctx, roomID)
	if err != nil {
		return err
	}
	p.watch(activation.Store)
	fmt.Printf("joined #%s (/join <room>, /who, /quit)\n", roomID)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return inputLoop(gCtx, chatClient, p, os.Stdin)
	})

	g.Go(func() error {
		<-gCtx.Done()
		chatClient.Leave()
		return nil
	})

	// A clean /quit surfaces as errQuit so the group context is cancelled
	// and the teardown goroutine runs before Wait returns.
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// errQuit ends the errgroup on a deliberate exit; run filters it out.
var errQuit = errors.New("quit")

// inputLoop reads input line by line until EOF or /quit. Plain lines are
// sent to the active room; a few slash commands control the session.
func inputLoop(ctx context.Context, client *chat.Client, p *printer, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/quit":
				return errQuit
			case line == "/who":
				if a := client.Current(); a != nil {
					fmt.Printf("online: %s\n", strings.Join(a.Presence.Online(), ", "))
					if typists := a.Presence.TypingUsers(); len(typists) > 0 {
						fmt.Printf("typing: %s\n", strings.Join(typists, ", "))
					}
				}
			case strings.HasPrefix(line, "/join "):
				roomID := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
				a, err := client.Join(ctx, roomID)
				if err != nil {
					fmt.Printf("join failed: %v\n", err)
					continue
				}
				p.watch(a.Store)
				fmt.Printf("joined #%s\n", roomID)
			default:
				a := client.Current()
				if a == nil || !a.Connected() {
					fmt.Println("not connected")
					continue
				}
				a.NotifyTyping()
				a.Send(line)
			}
		}
	}
}

// printer tails the active room's message log to the terminal.
type printer struct {
	out    io.Writer
	selfID int64

	mu    sync.Mutex
	st    *store.Store
	shown []models.Message
}

func newPrinter(out io.Writer, selfID int64) *printer {
	return &printer{out: out, selfID: selfID}
}

func (p *printer) watch(st *store.Store) {
	p.mu.Lock()
	p.st = st
	p.shown = nil
	p.mu.Unlock()

	st.OnUpdate(p.render)
	p.render()
}

func (p *printer) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return
	}

	entries := p.st.Entries(p.selfID)

	// The history merge prepends, so the already-printed prefix can shift
	// out from under a bare counter. When the prefix no longer matches what
	// was printed, replay the whole log in order.
	if !p.prefixShown(entries) {
		p.shown = nil
		fmt.Fprintln(p.out, "--- earlier messages ---")
	}

	for _, e := range entries[len(p.shown):] {
		text := content.Clean(e.Content)
		stamp := e.CreatedAt.Local().Format("15:04")
		switch {
		case e.System:
			fmt.Fprintf(p.out, "-- %s\n", text)
		case e.Own:
			fmt.Fprintf(p.out, "[%s] you: %s\n", stamp, text)
		default:
			fmt.Fprintf(p.out, "[%s] %s: %s\n", stamp, e.Username, text)
		}
		p.shown = append(p.shown, e.Message)
	}
}

func (p *printer) prefixShown(entries []store.Entry) bool {
	if len(p.shown) > len(entries) {
		return false
	}
	for i, m := range p.shown {
		if !entries[i].Same(m) {
			return false
		}
	}
	return true
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
