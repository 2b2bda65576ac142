package warmup

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-warmup-automation/internal/runner"
	"go-warmup-automation/utils"
)

// Session implements runner.Session over one persistent browser context.
type Session struct {
	bctx   playwright.BrowserContext
	page   playwright.Page
	shots  *utils.ScreenShotDebugger
	images *ImageFetcher
}

// Perform runs one named warmup step. Optional steps whose target is
// simply absent return runner.ErrStepSkipped; everything else that goes
// wrong comes back as a runner.ActionError with a screenshot reference.
func (s *Session) Perform(ctx context.Context, step runner.Step) error {
	s.page.SetDefaultTimeout(timeoutMs(ctx, 30*time.Second))

	switch step.Name {
	case "verify_login":
		return s.verifyLogin(ctx)
	case "verify_feed":
		return s.verifyFeed(ctx)
	case "browse_feed":
		return s.browseFeed(ctx)
	case "visit_profile":
		return s.visitProfile(ctx)
	case "return_home":
		return s.returnHome(ctx)
	case "watch_story":
		return s.watchStory(ctx)
	case "like_post":
		return s.likePost(ctx)
	case "comment_post":
		return s.commentPost(ctx)
	case "image_post":
		return s.imagePost(ctx)
	default:
		return &runner.ActionError{Step: step.Name, Err: fmt.Errorf("unknown step")}
	}
}

// Close shuts the browser context down. Safe on every exit path.
func (s *Session) Close() error {
	return s.bctx.Close()
}

// fail wraps a step error into an ActionError, grabbing a screenshot so
// the operator can see what the page looked like.
func (s *Session) fail(step, detail string, err error) error {
	shot, shotErr := s.shots.Capture(s.page, step+"_failed")
	if shotErr != nil {
		shot = ""
	}
	return &runner.ActionError{Step: step, Detail: detail, Screenshot: shot, Err: err}
}

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", runner.ErrStepSkipped, fmt.Sprintf(format, args...))
}

// firstVisible returns the first visible match across the ordered
// selector fallback chain. Facebook's DOM shifts constantly, so every
// lookup runs through several generations of selectors.
func (s *Session) firstVisible(selectors ...string) (playwright.Locator, bool) {
	for _, sel := range selectors {
		loc := s.page.Locator(sel)
		n, err := loc.Count()
		if err != nil {
			continue
		}
		if n > 8 {
			n = 8
		}
		for i := 0; i < n; i++ {
			cand := loc.Nth(i)
			if visible, err := cand.IsVisible(); err == nil && visible {
				return cand, true
			}
		}
	}
	return nil, false
}

func (s *Session) anyVisible(selectors ...string) bool {
	_, ok := s.firstVisible(selectors...)
	return ok
}

// countVisible counts how many of the given selectors have at least one
// visible match.
func (s *Session) countVisible(selectors ...string) int {
	found := 0
	for _, sel := range selectors {
		if s.anyVisible(sel) {
			found++
		}
	}
	return found
}

// click tries a normal click first and falls back to a JS click, which
// gets past the overlays Facebook likes to float over its buttons.
func (s *Session) click(loc playwright.Locator) error {
	_ = loc.ScrollIntoViewIfNeeded()
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err == nil {
		return nil
	}
	_, err := loc.Evaluate("el => el.click()", nil)
	return err
}

func (s *Session) scrollTop() {
	_, _ = s.page.Evaluate("window.scrollTo(0, 0)")
}
