package warmup

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay sleeps a random duration in [min, max], returning early if
// the context is cancelled. Fixed delays between actions are a bot tell.
func RandomDelay(ctx context.Context, min, max time.Duration) {
	if max <= min {
		max = min + time.Millisecond
	}
	d := min + time.Duration(rand.Int63n(int64(max-min)))
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// HumanScroll scrolls down in uneven half-viewport steps, then drifts
// back up a little the way a reader does.
func HumanScroll(ctx context.Context, page playwright.Page) error {
	for i := 0; i < 5; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		RandomDelay(ctx, 500*time.Millisecond, 1500*time.Millisecond)
	}
	_, err := page.Evaluate("window.scrollBy(0, -200)")
	return err
}

// MouseJiggle moves the pointer to a few random spots to avoid looking
// idle between actions.
func MouseJiggle(page playwright.Page) error {
	viewport := page.ViewportSize()
	if viewport == nil {
		return nil
	}
	for i := 0; i < 3; i++ {
		x := rand.Intn(viewport.Width)
		y := rand.Intn(viewport.Height)
		if err := page.Mouse().Move(float64(x), float64(y)); err != nil {
			return err
		}
		time.Sleep(time.Duration(100+rand.Intn(200)) * time.Millisecond)
	}
	return nil
}
