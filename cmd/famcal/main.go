package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"famcal/internal/config"
	"famcal/internal/ics"
	appLog "famcal/internal/log"
	"famcal/internal/store"
	"famcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("famcal starting", "version", "0.1.0-dev")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"database", conf.DatabasePath,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
	)

	loc := time.Local
	if conf.Timezone != "" {
		if l, lerr := time.LoadLocation(conf.Timezone); lerr == nil {
			loc = l
		} else {
			appLog.Error("failed to load timezone; falling back to local", lerr, "name", conf.Timezone)
		}
	}

	st, err := store.Open(conf.DatabasePath)
	if err != nil {
		appLog.Error("failed to open database", err, "path", conf.DatabasePath)
		os.Exit(1)
	}
	defer st.Close()

	cal := ics.NewClient(conf.CacheDir, calendarSources(conf), loc)

	// Root context canceled on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// Background refresh keeps the feed cache warm so agenda requests hit
	// a fresh disk cache instead of waiting on the calendar host.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		refreshCtx, refreshCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer refreshCancel()

		now := time.Now().In(loc)
		if _, err := cal.EventsForRange(refreshCtx, now.AddDate(0, 0, -1), now.AddDate(0, 0, conf.HorizonDays)); err != nil {
			appLog.Error("calendar refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, st, cal).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	appLog.Info("famcal exiting")
}

func calendarSources(conf *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	return sources
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/famcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
