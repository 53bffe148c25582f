package cmd

import (
	"fmt"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/emulator"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/profile"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/rsa"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/server"
)

// serverOptions are shared by every command that runs a server.
type serverOptions struct {
	impl     string
	legacy   bool
	settings string // system parameter store, INI or bolt
	emulator emulator.Config
	server   server.Config
}

func defaultServerOptions() serverOptions {
	return serverOptions{
		impl:     "Emulator",
		emulator: *emulator.DefaultConfig(),
		server:   *server.DefaultConfig(),
	}
}

func (o *serverOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.impl, "impl", o.impl, "implementation to create")
	cmd.Flags().BoolVar(&o.legacy, "legacy", o.legacy, "publish legacy ids")
	cmd.Flags().StringVar(&o.settings, "bolt", o.settings,
		"store system parameters in this profile (.db/.bolt for bolt, INI otherwise)")
}

func newRegistry(cfg *emulator.Config) (*rsa.Registry, error) {
	reg := rsa.NewRegistry()
	if err := emulator.RegisterConfig(reg, cfg); err != nil {
		return nil, err
	}
	return reg, nil
}

// session is a server together with the resources it holds.
type session struct {
	srv   *server.Server
	store profile.Store
}

func (o *serverOptions) open() (*session, error) {
	reg, err := newRegistry(&o.emulator)
	if err != nil {
		return nil, err
	}
	cfg := o.server
	if o.legacy && cfg.Compatible == 0 {
		cfg.Compatible = 1
	}
	srv, err := server.New(&cfg, broker.New(), reg)
	if err != nil {
		return nil, err
	}
	s := &session{srv: srv}
	if o.settings != "" {
		store, err := profile.Open(o.settings)
		if err != nil {
			return nil, err
		}
		s.store = store
		srv.SetProfile(store)
	}
	if err := srv.CreateImplementation(o.impl); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// close writes the system parameters back and releases the store.
func (s *session) close() {
	if s.store != nil {
		if acq := s.srv.Acquisition(); acq != nil && !rsa.ReadWriteSettings(acq, s.store, false) {
			log.Errorf("settings could not be written completely")
		}
	}
	s.srv.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("close settings: %v", err)
		}
	}
}

func hexID(id uint32) string { return fmt.Sprintf("0x%08X", id) }
