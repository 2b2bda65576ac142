// Command warmup runs the warmup sequence once from the terminal,
// without the web panel. Useful for cron jobs and quick checks.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go-warmup-automation/internal/config"
	"go-warmup-automation/internal/events"
	"go-warmup-automation/internal/history"
	"go-warmup-automation/internal/profile"
	"go-warmup-automation/internal/reporter"
	"go-warmup-automation/internal/runner"
	"go-warmup-automation/internal/warmup"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config file")
		profileArg = flag.String("profiles", "", "comma-separated profile ids or names (default: all)")
		rounds     = flag.Int("rounds", 1, "number of rounds over the selection")
		listOnly   = flag.Bool("list", false, "list stored profiles and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	store, err := profile.NewStore(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load profiles: %v", err)
	}

	if *listOnly {
		for _, p := range store.List() {
			log.Printf("  %s  %s  (%s)", p.ID, p.Name, p.Path)
		}
		return
	}

	ids := selectProfiles(store, *profileArg)
	if len(ids) == 0 {
		log.Fatal("❌ No profiles selected - add some with the web panel or edit profiles.json")
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

	rn := runner.New(driver, store, events.NewFeed(), hist, runner.Options{
		ProfileDelay: cfg.ProfileDelay(),
		StepTimeout:  cfg.StepTimeout(),
	})

	if _, err := rn.Start(ids, *rounds); err != nil {
		log.Fatalf("❌ Failed to start run: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rn.Wait(ctx); err != nil {
		log.Println("🛑 Interrupted - stopping after the current step...")
		rn.Stop()
		rn.Wait(context.Background())
	}

	snap := rn.Status()
	log.Printf("Run %s: completed %d | failed %d | skipped %d",
		snap.Status, snap.Completed, snap.Failed, snap.Skipped)

	if cfg.TelegramEnabled() {
		if tg, err := reporter.NewTelegramReporter(cfg.TelegramToken, cfg.TelegramChatID); err == nil {
			if err := tg.SendRunSummary(snap); err != nil {
				log.Printf("⚠️ Failed to send Telegram summary: %v", err)
			}
		}
	}

	if snap.Failed > 0 {
		os.Exit(1)
	}
}

// selectProfiles resolves the -profiles flag against the store, matching
// by id first, then by name. Empty selection means every profile.
func selectProfiles(store *profile.Store, arg string) []string {
	all := store.List()
	if strings.TrimSpace(arg) == "" {
		ids := make([]string, 0, len(all))
		for _, p := range all {
			ids = append(ids, p.ID)
		}
		return ids
	}

	var ids []string
	for _, token := range strings.Split(arg, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		found := false
		for _, p := range all {
			if p.ID == token || strings.EqualFold(p.Name, token) {
				ids = append(ids, p.ID)
				found = true
				break
			}
		}
		if !found {
			log.Printf("⚠️ Unknown profile %q - ignoring", token)
		}
	}
	return ids
}
