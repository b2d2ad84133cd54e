package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cryptick/internal/app"
	"cryptick/internal/cli"
	"cryptick/internal/config"
	"cryptick/internal/fatal"
	"cryptick/internal/gecko"
	"cryptick/internal/hotkey"
	"cryptick/internal/hotkey/global"
	"cryptick/internal/instance"
	"cryptick/internal/logging"
	"cryptick/internal/logo"
	"cryptick/internal/metrics"
	"cryptick/internal/overlay"
	"cryptick/internal/prices"
	"cryptick/internal/profile"
	"cryptick/internal/scheduler"
	"cryptick/internal/settings"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli.CLI{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Run:    run,
		Fatal:  func(err error) { fatal.Show(os.Stderr, err) },
	}
	code := c.Main(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run starts the overlay with everything it needs and blocks until the
// window closes or a signal arrives. State is saved on the way out.
func run(ctx context.Context, s *settings.Settings) error {
	layout := s.Layout()
	if err := layout.Ensure(); err != nil {
		return fmt.Errorf("create data dir [%s]: %w", layout.Root, err)
	}

	log, closeLog, err := logging.New(logging.Options{File: layout.LogFile(), Level: s.LogLevel, Console: true})
	if err != nil {
		return err
	}
	defer closeLog()

	release, err := instance.Acquire(layout.Root)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		log.Infow("Another instance is already running, exiting")
		return nil
	}
	if err != nil {
		log.Warnw("Single instance check failed, continuing", "error", err)
	} else {
		defer release()
	}

	log.Infow("Starting", "data_dir", layout.Root, "api", s.APIBaseURL, "strategy", s.Strategy)

	store := config.NewStore(layout.StateFile(), log)
	state, err := store.Load()
	if err != nil {
		log.Warnw("State file unreadable, starting with defaults", "error", err)
		if errors.Is(err, config.ErrConfigLoad) {
			if _, qerr := store.Quarantine(); qerr != nil {
				return fmt.Errorf("state file [%s] is unusable and could not be moved aside: %w", store.Path(), qerr)
			}
		}
	}

	collector := metrics.New()
	mgr := profile.NewManager(state, store,
		profile.WithDebounce(s.Debounce),
		profile.WithLogger(log),
		profile.WithObserver(collector),
	)

	client := gecko.NewClient(s.APIBaseURL, s.APITimeout,
		gecko.WithRetries(s.APIRetries),
		gecko.WithLogger(log),
		gecko.WithObserver(collector),
	)
	strategy, err := prices.StrategyByName(s.Strategy)
	if err != nil {
		return err
	}
	fetcher := prices.NewFetcher(client, strategy,
		prices.WithLogger(log),
		prices.WithObserver(collector),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(fetcher.Fetch, scheduler.WithLogger(log))
	go sched.Run(ctx)

	hotkeys := global.NewListener(log)
	defer hotkeys.Close()
	bindHotkeys(ctx, hotkeys, mgr.State().Hotkeys, log)

	logos := logo.NewCache(layout.LogoDir(), logo.WithLogger(log))
	ctl := app.NewController(ctx, mgr, sched,
		app.WithLogos(logos),
		app.WithLogger(log),
		app.WithActions(hotkeys.Events()),
		app.WithRefreshOverride(s.RefreshInterval),
		app.WithRecordObserver(collector),
	)

	bound := mgr.State().Hotkeys
	go func() {
		err := store.Watch(ctx, func(st *config.AppState) {
			log.Infow("State file changed, reloading")
			hk := st.Hotkeys
			ctl.Reload(st)
			if hk != bound {
				bound = hk
				bindHotkeys(ctx, hotkeys, bound, log)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Warnw("State file watcher stopped", "error", err)
		}
	}()

	if s.MetricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, s.MetricsAddr, log); err != nil {
				log.Warnw("Metrics endpoint stopped", "addr", s.MetricsAddr, "error", err)
			}
		}()
	}

	runErr := overlay.Run(ctx, ctl, logos, log)
	cancel()

	if err := store.Save(mgr.State()); err != nil {
		log.Errorw("Error saving state on exit", "error", err)
	}
	if runErr != nil {
		log.Errorw("Overlay failed", "error", runErr)
		return runErr
	}
	log.Infow("Stopped")
	return nil
}

func bindHotkeys(ctx context.Context, l *global.Listener, hk config.Hotkeys, log *zap.SugaredLogger) {
	bindings, errs := hotkey.Bindings(hk.Combos())
	for _, err := range errs {
		log.Warnw("Invalid hotkey in settings", "error", err)
	}
	n := l.Bind(ctx, bindings)
	log.Infow("Hotkeys registered", "cycle", hk.Cycle, "unlock", hk.Unlock, "pause", hk.Pause, "refresh", hk.Refresh, "count", n)
}
