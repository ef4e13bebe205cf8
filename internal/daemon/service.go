// Package daemon runs a settings registry over a configured link.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/fwsettings/internal/admin"
	"github.com/danmuck/fwsettings/internal/config"
	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/settings"
	"github.com/danmuck/fwsettings/internal/transport"
	"github.com/rs/zerolog"
)

var ErrNotBootstrapped = errors.New("daemon: service not bootstrapped")

// Option adjusts a Service before it starts.
type Option func(*Service)

// WithOpener replaces the link opener derived from the config.
func WithOpener(open transport.Opener) Option {
	return func(s *Service) { s.open = open }
}

// WithBackoff overrides the reconnect backoff used while opening the link.
func WithBackoff(b transport.BackoffConfig) Option {
	return func(s *Service) { s.backoff = b }
}

// WithRequestLogger sets the logger used for admin HTTP request lines.
func WithRequestLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.requestLog = l }
}

// Service owns one link, the settings bound to it and the optional admin
// HTTP surface.
type Service struct {
	cfg        config.DaemonConfig
	open       transport.Opener
	backoff    transport.BackoffConfig
	requestLog zerolog.Logger

	link     *transport.Link
	settings *settings.Settings
	declared []*settings.Setting
}

func NewService(cfg config.DaemonConfig, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		open:       OpenerFor(cfg.Link),
		backoff:    transport.DefaultBackoffConfig(),
		requestLog: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenerFor maps a link config onto the serial or TCP opener.
func OpenerFor(cfg config.LinkConfig) transport.Opener {
	switch cfg.Kind {
	case config.LinkTCP:
		return func(context.Context) (io.ReadWriteCloser, error) {
			return transport.DialTCP(cfg.Addr, cfg.DialTimeout)
		}
	default:
		return func(context.Context) (io.ReadWriteCloser, error) {
			return transport.OpenSerial(cfg.Port, cfg.Baud)
		}
	}
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(ctx); err != nil {
		return err
	}
	defer s.close()
	return s.serve(ctx)
}

func (s *Service) Settings() *settings.Settings {
	return s.settings
}

func (s *Service) Link() *transport.Link {
	return s.link
}

// bootstrap opens the link, binds the settings handlers and registers every
// declared setting. Registration handshakes run here, before serve starts
// dispatching.
func (s *Service) bootstrap(ctx context.Context) error {
	if s.cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("daemon: heartbeat interval must be positive")
	}
	rwc, err := transport.Connect(ctx, s.open, s.backoff, s.cfg.Link.MaxConnectAttempts)
	if err != nil {
		return fmt.Errorf("daemon: open %s link: %w", s.cfg.Link.Kind, err)
	}
	s.link = transport.NewLink(rwc, transport.LinkConfig{SenderID: s.cfg.SenderID})

	st, err := settings.New(s.link, settings.Config{HostSenderID: s.cfg.HostSenderID})
	if err != nil {
		s.close()
		return err
	}
	s.settings = st

	declared, err := newDeclarer(st).Declare(s.cfg.Settings)
	s.declared = declared
	if err != nil {
		s.close()
		return err
	}

	logs.Infof(
		"daemon.Service.bootstrap ready id=%q link=%s settings=%d host_sender=0x%04x",
		s.cfg.ID,
		s.cfg.Link.Kind,
		st.Registry().Len(),
		s.cfg.HostSenderID,
	)
	return nil
}

func (s *Service) close() {
	if s.link != nil {
		if err := s.link.Close(); err != nil {
			logs.Debugf("daemon.Service.close link err=%v", err)
		}
	}
}

// serve dispatches link traffic, serves admin HTTP when configured and logs
// a heartbeat until ctx ends or the link fails.
func (s *Service) serve(ctx context.Context) error {
	if s.link == nil || s.settings == nil {
		return ErrNotBootstrapped
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	linkErr := make(chan error, 1)
	go func() {
		linkErr <- s.link.Run(ctx)
	}()

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.Admin.Addr) != "" {
		srv := admin.New(admin.Config{
			ID:           s.cfg.ID,
			Addr:         s.cfg.Admin.Addr,
			CORSOrigins:  s.cfg.Admin.CORSOrigins,
			QueryTimeout: 2 * time.Second,
			Logger:       s.requestLog,
			Token:        s.cfg.Admin.Token,
		}, s.link, s.settings)
		go func() {
			adminErr <- srv.Serve(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			logs.Infof("daemon.Service.serve shutdown id=%q", s.cfg.ID)
			return nil
		case err := <-linkErr:
			if ctx.Err() != nil {
				continue
			}
			return fmt.Errorf("daemon: link stopped: %w", err)
		case err := <-adminErr:
			if err != nil {
				return fmt.Errorf("daemon: admin server: %w", err)
			}
		case <-ticker.C:
			var count int
			var last settings.HandshakeState
			if err := s.link.Do(ctx, func() {
				count = s.settings.Registry().Len()
				last = s.settings.LastHandshake()
			}); err != nil {
				continue
			}
			logs.Infof(
				"daemon.Service.heartbeat id=%q settings=%d last_handshake=%s",
				s.cfg.ID,
				count,
				last,
			)
		}
	}
}
