package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"llmdebate/internal/api"
	"llmdebate/internal/config"
	"llmdebate/internal/session"
	"llmdebate/internal/transport"
)

// parseFlags layers the config file, .env, DEBATE_* variables and finally
// explicitly set flags.
func parseFlags(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("debate-tui", flag.ContinueOnError)
	configPath := fs.String("config", envOr("DEBATE_CONFIG", ""), "YAML config file")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before reading DEBATE_* variables")
	serverURL := fs.String("server", "", "Debate server base URL")
	socketPath := fs.String("socket-path", "", "Push channel path on the server")
	sessionID := fs.String("session-id", "", "Server-provided transport session id")
	appSessionID := fs.String("app-session-id", "", "Server-provided application session id")
	store := fs.String("session-store", "", "Session id store (file|memory|redis)")
	sessionFile := fs.String("session-file", "", "Session id file for the file store")
	redisAddr := fs.String("redis-addr", "", "Redis address for the redis store")
	requestTimeout := fs.Int("request-timeout", 0, "Command request timeout seconds")
	scrollThreshold := fs.Int("scroll-threshold", 0, "Rows from the bottom that still count as following the conversation")
	altScreen := fs.Bool("alt-screen", true, "Use the terminal alternate screen")
	debugLog := fs.String("debug-log", "", "Write a debug log to this file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server.URL = *serverURL
		case "socket-path":
			cfg.Server.SocketPath = *socketPath
		case "session-id":
			cfg.Session.ID = *sessionID
		case "app-session-id":
			cfg.Session.AppID = *appSessionID
		case "session-store":
			cfg.Session.Store = *store
		case "session-file":
			cfg.Session.File = *sessionFile
		case "redis-addr":
			cfg.Session.Redis.Addr = *redisAddr
		case "request-timeout":
			cfg.Server.RequestTimeoutSeconds = *requestTimeout
		case "scroll-threshold":
			cfg.UI.ScrollThreshold = *scrollThreshold
		case "alt-screen":
			cfg.UI.AltScreen = *altScreen
		case "debug-log":
			cfg.UI.DebugLog = *debugLog
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging routes the standard logger to a debug file, or discards it so
// nothing is written over the UI.
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(path, "debate")
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return func() { _ = f.Close() }, nil
}

func openStore(cfg *config.Config) (session.Store, error) {
	storeType, err := session.ParseStoreType(cfg.Session.Store)
	if err != nil {
		return nil, err
	}
	switch storeType {
	case session.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		opts := []session.StoreOption{session.WithRedisClient(client)}
		if cfg.Session.Redis.Key != "" {
			opts = append(opts, session.WithRedisKey(cfg.Session.Redis.Key))
		}
		return session.NewStore(storeType, opts...)
	case session.StoreTypeFile:
		return session.NewStore(storeType, session.WithFilePath(cfg.Session.File))
	default:
		return session.NewStore(storeType)
	}
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "debate-tui: %v\n", err)
		os.Exit(2)
	}
	closeLog, err := setupLogging(cfg.UI.DebugLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "debate-tui: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "debate-tui: session store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boot := session.NewBootstrap(store)
	resolveCtx, resolveCancel := context.WithTimeout(ctx, 5*time.Second)
	handshake, err := boot.Resolve(resolveCtx, cfg.Session.ID, cfg.Session.AppID)
	resolveCancel()
	if err != nil {
		log.Printf("session resolve: %v", err)
	}
	log.Printf("handshake session_id=%q app_session_id=%q", handshake.SessionID, handshake.AppSessionID)

	link, err := transport.New(cfg.Server.URL, cfg.Server.SocketPath, func() url.Values {
		return boot.Handshake().Query()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "debate-tui: %v\n", err)
		os.Exit(1)
	}
	inbound := make(chan any, 256)
	go link.Run(ctx, inbound)

	client := api.New(cfg.Server.URL, time.Duration(cfg.Server.RequestTimeoutSeconds)*time.Second)
	m := newModel(cfg, deps{api: client, session: boot, link: link, inbound: inbound})

	opts := []tea.ProgramOption{tea.WithMouseCellMotion(), tea.WithReportFocus()}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "debate-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
