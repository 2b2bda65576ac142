// Package warmup drives a real Facebook session through the warmup
// sequence with Playwright. Each browser profile gets its own persistent
// context, so the logged-in state lives in the profile directory and no
// credentials ever pass through this code.
package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-warmup-automation/internal/runner"
	"go-warmup-automation/utils"
)

const facebookURL = "https://www.facebook.com"

type Options struct {
	// Channel selects the installed browser ("msedge", "chrome"); empty
	// uses the Playwright-bundled Chromium.
	Channel        string
	Headless       bool
	ScreenshotsDir string
	ImagesDir      string
	PexelsAPIKey   string
	UnsplashAPIKey string
}

// Driver implements runner.Driver. The Playwright runtime starts lazily
// on the first session so the control panel can come up on machines
// where the browsers are not installed yet.
type Driver struct {
	opts   Options
	shots  *utils.ScreenShotDebugger
	images *ImageFetcher

	mu      sync.Mutex
	pw      *playwright.Playwright
	initErr error
}

func NewDriver(opts Options) *Driver {
	return &Driver{
		opts:   opts,
		shots:  utils.NewScreenShotDebugger(opts.ScreenshotsDir),
		images: NewImageFetcher(opts.PexelsAPIKey, opts.UnsplashAPIKey, opts.ImagesDir),
	}
}

func (d *Driver) runtime() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pw != nil || d.initErr != nil {
		return d.pw, d.initErr
	}
	pw, err := playwright.Run()
	if err != nil {
		d.initErr = fmt.Errorf("%w: start playwright: %v", runner.ErrDriverUnavailable, err)
		return nil, d.initErr
	}
	d.pw = pw
	return d.pw, nil
}

// OpenSession launches a persistent browser context bound to the
// profile directory and lands on the Facebook home page.
func (d *Driver) OpenSession(ctx context.Context, profilePath string) (runner.Session, error) {
	pw, err := d.runtime()
	if err != nil {
		return nil, &runner.SessionError{ProfilePath: profilePath, Err: err}
	}

	userDataDir, profileDir := SplitProfilePath(profilePath)
	args := []string{
		"--start-maximized",
		"--disable-blink-features=AutomationControlled",
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-popup-blocking",
		"--disable-notifications",
	}
	if profileDir != "" {
		args = append(args, "--profile-directory="+profileDir)
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:   playwright.Bool(d.opts.Headless),
		Args:       args,
		NoViewport: playwright.Bool(true),
		Timeout:    playwright.Float(timeoutMs(ctx, 60*time.Second)),
	}
	if d.opts.Channel != "" {
		launchOpts.Channel = playwright.String(d.opts.Channel)
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(userDataDir, launchOpts)
	if err != nil {
		// Most common cause: the profile is open in another browser
		// instance, which holds the singleton lock.
		return nil, &runner.SessionError{ProfilePath: profilePath, Err: err}
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = bctx.NewPage()
		if err != nil {
			bctx.Close()
			return nil, &runner.SessionError{ProfilePath: profilePath, Err: err}
		}
	}

	if _, err := page.Goto(facebookURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeoutMs(ctx, 30*time.Second)),
	}); err != nil {
		bctx.Close()
		return nil, &runner.SessionError{ProfilePath: profilePath, Err: err}
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	return &Session{
		bctx:   bctx,
		page:   page,
		shots:  d.shots,
		images: d.images,
	}, nil
}

// Close stops the Playwright runtime.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pw == nil {
		return nil
	}
	err := d.pw.Stop()
	d.pw = nil
	d.initErr = nil
	return err
}

// timeoutMs converts the context's remaining time to Playwright
// milliseconds, falling back when no deadline is set.
func timeoutMs(ctx context.Context, fallback time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return float64(remaining.Milliseconds())
		}
		return 1
	}
	return float64(fallback.Milliseconds())
}
