// Package racehub wires the race coordinator runtime: the Discord gateway,
// durable storage and the gRPC health endpoint.
package racehub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/PikalaxALT/dumbsparce/internal/bot"
	"github.com/PikalaxALT/dumbsparce/internal/platform/discord"
	"github.com/PikalaxALT/dumbsparce/internal/race/service"
	"github.com/PikalaxALT/dumbsparce/internal/storage/sqlite"
	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Config carries the runtime settings for the racehub server.
type Config struct {
	// Addr is the gRPC health listener address.
	Addr string
	// Token is the Discord bot token.
	Token string
	// Prefix marks messages as race commands.
	Prefix string
	// DBPath is the SQLite database path.
	DBPath string
	// ForfeitPenalty is the recorded duration for a forfeit; zero selects the
	// default.
	ForfeitPenalty time.Duration
}

// Server hosts the race coordinator and its lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *sqlite.Store
	session    *discordgo.Session
	bot        *bot.Bot
}

// New creates a configured racehub server. The Discord gateway is not opened
// until Serve.
func New(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		_ = store.Close()
		_ = listener.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	coordinator := service.NewCoordinator(
		service.Stores{GuildConfig: store, Race: store, Racer: store},
		discord.NewProvisioner(session),
		discord.NewNotifier(session),
		service.Config{
			ForfeitPenalty: cfg.ForfeitPenalty,
			Mention:        discord.Mention,
		},
	)
	commandBot := bot.New(session, coordinator, cfg.Prefix)
	commandBot.Register()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("racehub", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		session:    session,
		bot:        commandBot,
	}, nil
}

// Addr returns the health listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a racehub server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve opens the Discord gateway and the health endpoint, blocking until the
// context ends or serving fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	if err := s.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	log.Printf("racehub listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases the server's resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.bot != nil {
		s.bot.Close()
	}
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			log.Printf("close discord session: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}
