package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"keywatch/internal/app"
	"keywatch/internal/autostart"
	"keywatch/internal/backend"
	"keywatch/internal/config"
	"keywatch/internal/listener"
	"keywatch/internal/tray"
)

func newBackend(cfg *config.Config, log *zap.Logger) (*backend.Backend, error) {
	name := cfg.Backend
	if flagBackend != "" {
		name = flagBackend
	}
	return backend.New(backend.Options{
		Name:        name,
		Display:     cfg.Display,
		Transparent: cfg.Transparent,
		SkipRepeat:  cfg.SkipRepeat,
		OnMove: func(x, y, dx, dy int) {
			log.Debug("pointer moved", zap.Int("x", x), zap.Int("y", y), zap.Int("dx", dx), zap.Int("dy", dy))
		},
		Log: log,
	})
}

func runCheck(cmd *cobra.Command) error {
	mgr, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg := mgr.Get()

	b, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	lis := listener.New(b.Adapter, listener.WithLogger(log))
	a := app.New(lis, b.Resolver, app.WithLogger(log), app.PressOnly(b.PressOnly))
	if err := a.Check(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bindings ok (backend %s)\n", mgr.Path(), len(cfg.Bindings), b.Name)
	return nil
}

func runService(cmd *cobra.Command) error {
	mgr, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg := mgr.Get()

	b, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	lis := listener.New(b.Adapter, listener.WithTimeout(cfg.Timeout), listener.WithLogger(log))
	a := app.New(lis, b.Resolver, app.WithLogger(log), app.PressOnly(b.PressOnly))
	if err := a.Apply(cfg); err != nil {
		log.Warn("config has bindings that cannot be used", zap.Error(err))
	}
	syncAutostart(cfg, log)

	mgr.OnChange(func(c *config.Config) {
		if c.Backend != cfg.Backend || c.Display != cfg.Display || c.Transparent != cfg.Transparent {
			log.Warn("backend settings changed; restart keywatch to apply them")
		}
		if err := a.Apply(c); err != nil {
			log.Warn("reloaded config has bindings that cannot be used", zap.Error(err))
		}
		syncAutostart(c, log)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config will not reload", zap.Error(err))
		}
	}()

	// Bindings that fail are logged by the app; only a listener that did
	// not start is fatal.
	start := func() error {
		if err := a.Start(); err != nil && lis.State() != listener.Living {
			return err
		}
		log.Info("keywatch running", zap.String("backend", b.Name), zap.Strings("bindings", a.Bound()))
		return nil
	}

	var runErr error
	if cfg.Tray && !flagNoTray {
		runErr = runTray(ctx, stop, a, start, log)
	} else {
		runMain(func() {
			if runErr = start(); runErr != nil {
				return
			}
			log.Info("press Ctrl+C to stop")
			<-ctx.Done()
		})
	}

	log.Info("shutting down")
	if err := a.Stop(); err != nil {
		log.Warn("listener did not stop cleanly", zap.Error(err))
	}
	return runErr
}

// runTray shows the status icon on the calling goroutine until Quit or ctx
// is done.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, start func() error, log *zap.Logger) error {
	t := tray.New("keywatch", "keywatch - global hotkeys")
	status := t.AddLabel("Starting...")
	var pause int
	pause = t.AddCheckbox("Pause", func() {
		var err error
		if a.Paused() {
			err = a.Resume()
		} else {
			err = a.Pause()
		}
		if err != nil {
			log.Error("toggle pause failed", zap.Error(err))
		}
		paused := a.Paused()
		t.SetItemChecked(pause, paused)
		t.SetPaused(paused)
		t.SetItemTitle(status, statusText(a))
	})
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		quit()
	})

	startErr := make(chan error, 1)
	go func() {
		<-t.Ready()
		err := start()
		startErr <- err
		if err != nil {
			log.Error("failed to start listening", zap.Error(err))
			quit()
			return
		}
		t.SetItemTitle(status, statusText(a))
	}()
	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	t.Run()
	select {
	case err := <-startErr:
		return err
	default:
		return nil
	}
}

func statusText(a *app.App) string {
	if a.Paused() {
		return "Paused"
	}
	bound := a.Bound()
	if len(bound) == 0 {
		return "Listening (no bindings)"
	}
	return fmt.Sprintf("Listening: %s", strings.Join(bound, ", "))
}

func syncAutostart(cfg *config.Config, log *zap.Logger) {
	if cfg.Autostart == autostart.IsEnabled() {
		return
	}
	var err error
	if cfg.Autostart {
		err = autostart.Enable(autostartArgs()...)
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		log.Warn("autostart update failed", zap.Bool("enabled", cfg.Autostart), zap.Error(err))
		return
	}
	log.Info("autostart updated", zap.Bool("enabled", cfg.Autostart))
}
