package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-warmup-automation/internal/config"
	"go-warmup-automation/internal/events"
	"go-warmup-automation/internal/history"
	"go-warmup-automation/internal/profile"
	"go-warmup-automation/internal/reporter"
	"go-warmup-automation/internal/runner"
	"go-warmup-automation/internal/server"
	"go-warmup-automation/internal/warmup"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	store, err := profile.NewStore(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load profiles: %v", err)
	}

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Fatalf("❌ Failed to open history db: %v", err)
	}
	defer hist.Close()

	driver := warmup.NewDriver(warmup.Options{
		Channel:        cfg.BrowserChannel,
		Headless:       cfg.Headless,
		ScreenshotsDir: cfg.ScreenshotsDir,
		ImagesDir:      cfg.ImagesDir,
		PexelsAPIKey:   cfg.PexelsAPIKey,
		UnsplashAPIKey: cfg.UnsplashAPIKey,
	})
	defer driver.Close()

	feed := events.NewFeed()
	defer feed.Close()

	rn := runner.New(driver, store, feed, hist, runner.Options{
		ProfileDelay: cfg.ProfileDelay(),
		StepTimeout:  cfg.StepTimeout(),
	})

	if cfg.TelegramEnabled() {
		tg, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("⚠️ Telegram reporter disabled: %v", err)
		} else {
			go notifyRunFinished(feed, rn, tg)
			log.Println("📱 Telegram run summaries enabled")
		}
	}

	srv := server.New(store, rn, feed, hist)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Warmup control panel listening on http://localhost:%d", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Hot-reload profiles.json edited outside the panel.
		if err := store.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("⚠️ Profile watcher stopped: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down...")

		if err := rn.Stop(); err == nil {
			waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			rn.Wait(waitCtx)
			cancel()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
	log.Println("👋 Shutdown complete")
}

// notifyRunFinished sends a Telegram summary every time a run reaches a
// terminal state.
func notifyRunFinished(feed *events.Feed, rn *runner.Runner, tg *reporter.TelegramReporter) {
	sub, cancel := feed.Subscribe()
	defer cancel()
	for ev := range sub {
		if ev.Type != events.TypeRunFinished {
			continue
		}
		if err := tg.SendRunSummary(rn.Status()); err != nil {
			log.Printf("⚠️ Failed to send Telegram summary: %v", err)
		}
	}
}
