// Command sessionwatchd runs the session monitoring engine as a daemon: it
// wires a tmux pane adapter, a file-backed registry, and a notification
// router together, seeds the sessions named in its config file, and starts
// polling each one.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/watchpane/sessionwatch/internal/config"
	"github.com/watchpane/sessionwatch/internal/lockfile"
	"github.com/watchpane/sessionwatch/internal/monitor"
	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/notify/external"
	"github.com/watchpane/sessionwatch/internal/notify/terminal"
	"github.com/watchpane/sessionwatch/internal/notify/toast"
	"github.com/watchpane/sessionwatch/internal/paneio/tmux"
	"github.com/watchpane/sessionwatch/internal/registry"
	"github.com/watchpane/sessionwatch/internal/registry/filestore"
	"github.com/watchpane/sessionwatch/internal/server"
)

func main() {
	configPath := flag.String("config", "sessionwatchd.yaml", "path to the daemon config file")
	lockPath := flag.String("lock", "sessionwatchd.pid", "path to the single-instance PID lock")
	listenAddr := flag.String("listen", "", "address for the status API (empty disables it)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	lock, err := lockfile.Acquire(*lockPath)
	if err != nil {
		logger.Fatalf("[MAIN] acquire lock: %v", err)
	}
	defer lock.Release()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("[MAIN] load config: %v", err)
	}

	reg, err := filestore.New(cfg.RegistryDir, 500*time.Millisecond, logger)
	if err != nil {
		logger.Fatalf("[MAIN] open registry: %v", err)
	}

	seedSessions(reg, cfg, logger)

	notifier := buildNotifier(cfg, logger)

	engine := monitor.New(tmux.DefaultClient, reg, notifier, monitor.Config{
		PollInterval: cfg.PollInterval(),
		MaxRetries:   cfg.MaxRetries,
		AutoRestart:  cfg.AutoRestart,
	}, monitor.SystemClock, logger)

	for _, s := range cfg.Sessions {
		if err := engine.StartMonitoring(s.ID); err != nil {
			logger.Printf("[MAIN] start monitoring %s: %v", s.ID, err)
		}
	}

	var httpServer *http.Server
	if *listenAddr != "" {
		statusAPI := server.New(reg, engine, logger)
		httpServer = &http.Server{Addr: *listenAddr, Handler: statusAPI}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("[MAIN] status API exited: %v", err)
			}
		}()
		defer statusAPI.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Printf("[MAIN] shutting down")
	engine.StopAll()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if fs, ok := reg.(*filestore.Store); ok {
		fs.FlushAll()
	}
}

func seedSessions(reg registry.Registry, cfg config.Config, logger *log.Logger) {
	ctx := context.Background()
	for _, s := range cfg.Sessions {
		_, err := reg.Update(ctx, s.ID, func(r registry.SessionRecord) registry.SessionRecord {
			if r.Created.IsZero() {
				r.Created = time.Now()
			}
			r.Name = s.Name
			r.PaneID = s.PaneID
			if r.Status == "" {
				r.Status = registry.StatusActive
			}
			if s.QuotaTimeOfDay != "" && r.QuotaSchedule == nil {
				sched := &registry.QuotaSchedule{
					TimeOfDay: s.QuotaTimeOfDay,
					Command:   s.QuotaCommand,
				}
				if next, ok := monitor.NextQuotaExecution(s.QuotaTimeOfDay, time.Now()); ok {
					sched.NextExecution = next
				}
				r.QuotaSchedule = sched
			}
			return r
		})
		if err != nil {
			logger.Printf("[MAIN] seed session %s: %v", s.ID, err)
		}
	}
}

func buildNotifier(cfg config.Config, logger *log.Logger) notify.Notifier {
	channels := []notify.Notifier{terminal.New(os.Stdout)}
	if cfg.Notify.ToastAppID != "" {
		channels = append(channels, toast.New(cfg.Notify.ToastAppID, logger))
	}
	if cfg.Notify.SlackURL != "" {
		channels = append(channels, external.NewSlack(cfg.Notify.SlackURL, nil))
	}
	if cfg.Notify.DiscordURL != "" {
		channels = append(channels, external.NewDiscord(cfg.Notify.DiscordURL, nil))
	}
	return notify.NewRouter(logger, channels...)
}
