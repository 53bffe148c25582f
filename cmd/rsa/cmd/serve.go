package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/internal/httpapi"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/profile"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/server"
)

const (
	defaultAddr = ":8080"
	defaultTick = 50 * time.Millisecond
)

var (
	serveOpts   = defaultServerOptions()
	serveAddr   = defaultAddr
	serveTick   = defaultTick
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an implementation and serve it over HTTP",
	Long: `Creates the implementation, publishes it on a broker and drives it with a
periodic tick. The broker is reachable through a JSON API; /metrics serves the
prometheus collectors.

Settings can come from an INI file:

  [Server]
  Compatible=0
  DeviceNumber=2
  Name=Acquisition
  Tick=50ms
  Addr=:8080

  [Emulator]
  Channels=8
  MaxGates=8

Flags given on the command line win over the file.

Examples:
  rsa serve
  rsa serve --profile rsa.ini --bolt settings.db
  rsa serve --legacy --impl "Emulator Fixed" --tick 20ms`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveOpts.addFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", serveAddr, "HTTP listen address")
	serveCmd.Flags().DurationVar(&serveTick, "tick", serveTick, "sustain period")
	serveCmd.Flags().StringVar(&serveConfig, "profile", "", "INI file with [Server] and [Emulator] sections")
}

// serveSettings is everything the serve command can take from a file.
type serveSettings struct {
	addr string
	tick time.Duration
	opts serverOptions
}

// loadServeSettings overlays the INI file at path onto s.
func loadServeSettings(path string, s *serveSettings) error {
	p, err := profile.NewParser()
	if err != nil {
		return err
	}
	m, err := p.ParseFile(path)
	if err != nil {
		return err
	}
	str := func(sec, key string, dst *string) {
		if v, _ := m.String(sec, key, ""); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(sec, key string, set func(int64)) {
		v, _ := m.String(sec, key, "")
		if v == "" {
			return
		}
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("[%s] %s: %w", sec, key, err))
			return
		}
		set(n)
	}

	str("Server", "Addr", &s.addr)
	str("Server", "Name", &s.opts.server.ServerName)
	num("Server", "Compatible", func(n int64) { s.opts.server.Compatible = int(n) })
	num("Server", "DeviceNumber", func(n int64) { s.opts.server.DeviceNumber = uint32(n) })
	if v, _ := m.String("Server", "Tick", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("[Server] Tick: %w", err))
		} else {
			s.tick = d
		}
	}
	num("Emulator", "Channels", func(n int64) { s.opts.emulator.Channels = int(n) })
	num("Emulator", "MaxGates", func(n int64) { s.opts.emulator.MaxGates = int(n) })
	if v, _ := m.String("Emulator", "FixedGates", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("[Emulator] FixedGates: %w", err))
		} else {
			s.opts.emulator.FixedGates = b
		}
	}
	return errors.Join(errs...)
}

// resolveServeSettings merges defaults, the INI file and the flags that were set.
func resolveServeSettings(cmd *cobra.Command) (serveSettings, error) {
	s := serveSettings{addr: defaultAddr, tick: defaultTick, opts: defaultServerOptions()}
	if serveConfig != "" {
		if err := loadServeSettings(serveConfig, &s); err != nil {
			return s, fmt.Errorf("load %s: %w", serveConfig, err)
		}
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		s.addr = serveAddr
	}
	if f.Changed("tick") {
		s.tick = serveTick
	}
	if f.Changed("impl") {
		s.opts.impl = serveOpts.impl
	}
	if f.Changed("legacy") {
		s.opts.legacy = serveOpts.legacy
	}
	if f.Changed("bolt") {
		s.opts.settings = serveOpts.settings
	}
	if err := s.opts.emulator.Validate(); err != nil {
		return s, err
	}
	if s.tick <= 0 {
		return s, fmt.Errorf("tick must be positive, got %v", s.tick)
	}
	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := resolveServeSettings(cmd)
	if err != nil {
		return err
	}
	sess, err := settings.opts.open()
	if err != nil {
		return err
	}
	defer sess.close()

	runner := httpapi.NewRunner()
	httpSrv := &http.Server{
		Addr:    settings.addr,
		Handler: httpapi.New(sess.srv, runner).Handler(),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Infof("serve: listening on %s", settings.addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	err = drive(ctx, sess.srv, runner, settings.tick, errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		log.Errorf("serve: shutdown: %v", serr)
	}
	return err
}

// drive owns the server: it ticks the implementation and runs commands
// handed in by the HTTP API until ctx ends.
func drive(ctx context.Context, srv *server.Server, runner *httpapi.Runner, tick time.Duration, errc <-chan error) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			srv.Sustain(now)
		case fn := <-runner.C():
			fn()
		case err, ok := <-errc:
			if ok {
				return err
			}
			errc = nil
		case <-ctx.Done():
			log.Infof("serve: stopping")
			return nil
		}
	}
}
