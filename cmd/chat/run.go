package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go-chatty-client/internal/config"
	cacheadapter "go-chatty-client/internal/infrastructure/cache/adapter"
	cacheport "go-chatty-client/internal/infrastructure/cache/port"
	queueadapter "go-chatty-client/internal/infrastructure/queue/adapter"
	"go-chatty-client/internal/logging"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/notify"
	"go-chatty-client/internal/pkg/chat/application/session"
	"go-chatty-client/internal/pkg/chat/persistence/repository/adapter"
	"go-chatty-client/internal/pkg/chat/presentation/controller"
	"go-chatty-client/internal/pkg/chat/presentation/tui"
)

func runChat(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, log.Logger)
}

// run wires the session and runs the chat screen, plus the realtime feed
// when one is configured, until the user quits or ctx ends.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	local, remote := chat.ID(cfg.UserID), chat.ID(cfg.PeerID)

	repo, err := adapter.NewHttpChatRepository(cfg.BaseURL,
		adapter.WithLogger(logger),
		adapter.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
	)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithLogger(logger)}
	if cfg.Bell {
		opts = append(opts, session.WithNotifier(notify.NewBell(os.Stderr)))
	}
	if cfg.SerializeSends {
		runner := queueadapter.NewSerialRunner()
		defer runner.Close()
		opts = append(opts, session.WithRunner(runner))
	}
	cache := conversationCache(ctx, cfg.RedisURL, logger)
	defer cache.Close()
	opts = append(opts, session.WithConversationCache(cache))
	s := session.New(repo, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	model := tui.New(gctx, s, tui.Config{
		LocalUser:  local,
		RemoteUser: remote,
		PeerName:   cfg.PeerName,
		Timeout:    cfg.Timeout.Duration(),
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return pkgerrors.Wrap(err, "chat screen")
		}
		return nil
	})

	if cfg.RealtimeURL != "" {
		feed := controller.NewChatSocketController(s, cfg.RealtimeURL, local, logger)
		g.Go(func() error {
			// A dead feed leaves the screen usable with request/response only.
			if err := feed.Run(gctx); err != nil {
				logger.Warn().Err(err).Msg("realtime feed stopped")
			}
			return nil
		})
	}

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("local_user", local.String()).
		Str("remote_user", remote.String()).
		Bool("realtime", cfg.RealtimeURL != "").
		Bool("serialize_sends", cfg.SerializeSends).
		Msg("chat session starting")
	return g.Wait()
}

// conversationCache prefers Redis so resolved ids survive restarts and falls
// back to process memory when no URL is set or Redis is unreachable.
func conversationCache(ctx context.Context, redisURL string, logger zerolog.Logger) cacheport.Cache {
	if redisURL == "" {
		return cacheadapter.NewMemoryCache()
	}
	cache, err := cacheadapter.NewRedisAdapter(ctx, redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis conversation cache unavailable, using memory")
		return cacheadapter.NewMemoryCache()
	}
	return cache
}
