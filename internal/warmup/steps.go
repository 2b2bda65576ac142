package warmup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Selector fallback chains, oldest observed DOM shape last. All lifted
// from live Facebook; expect to retouch them when the markup rotates.
var (
	loginFormSelectors = []string{
		"input[name='email']",
		"input[name='pass']",
		"[data-testid='royal_login_button']",
		"button[name='login']",
	}

	loggedInSelectors = []string{
		"[aria-label='Account']",
		"[aria-label='Your profile']",
		"[aria-label='Profile']",
		"a[href*='/me/']",
		`//span[contains(text(), "What's on your mind")]`,
	}

	feedSelectors = []string{
		"[role='feed']",
		"[aria-label='Stories']",
		`//span[contains(text(), "What's on your mind")]`,
		"[role='article']",
		"[role='main']",
	}

	authorLinkSelectors = []string{
		"[role='article'] h4 a[role='link']",
		"[role='article'] strong a",
		"[role='article'] h3 a",
		"[role='feed'] [role='article'] a[aria-label]",
		"[role='article'] a[href*='facebook.com/'][tabindex='0']",
	}

	storySelectors = []string{
		"div[aria-label='Stories'] div[role='button']",
		"a[href*='/stories/']",
		`//div[contains(@aria-label, 'Stories')]//a`,
		`//div[@aria-label='Stories']//div[@role='button']`,
	}

	likeButtonSelectors = []string{
		`//div[@aria-label='Like'][@role='button']`,
		`//span[text()='Like']/ancestor::div[@role='button']`,
		"[aria-label='Like'][role='button']",
	}

	commentButtonSelectors = []string{
		`//div[@role='button'][contains(., 'Comment')]`,
		"[aria-label*='Comment'][role='button']",
		`//span[contains(text(), 'Comment')]`,
	}

	composerSelectors = []string{
		`//span[contains(text(), "What's on your mind")]`,
		"[aria-label*='on your mind']",
	}
)

// verifyLogin decides whether the profile carries a live Facebook
// session. The contract: no login-form element visible AND at least one
// logged-in indicator present. Anything else is a hard failure - the
// rest of the sequence is pointless on a logged-out profile.
func (s *Session) verifyLogin(ctx context.Context) error {
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	if s.anyVisible(loginFormSelectors...) {
		return s.fail("verify_login", "login page detected - profile is not logged in", nil)
	}
	if !s.anyVisible(loggedInSelectors...) {
		return s.fail("verify_login", "unable to confirm login status", nil)
	}
	return nil
}

// verifyFeed wants at least two independent feed landmarks before
// trusting that the feed rendered.
func (s *Session) verifyFeed(ctx context.Context) error {
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	if found := s.countVisible(feedSelectors...); found < 2 {
		return skipf("feed verification incomplete - only %d feed indicator(s) visible", found)
	}
	return nil
}

func (s *Session) browseFeed(ctx context.Context) error {
	for i := 0; i < 2; i++ {
		if err := HumanScroll(ctx, s.page); err != nil {
			return s.fail("browse_feed", "scrolling failed", err)
		}
		RandomDelay(ctx, 2*time.Second, 3*time.Second)
	}
	_ = MouseJiggle(s.page)
	s.scrollTop()
	return nil
}

// visitProfile opens the first post author's profile page.
func (s *Session) visitProfile(ctx context.Context) error {
	s.scrollTop()
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	link, ok := s.firstVisible(authorLinkSelectors...)
	if !ok {
		return skipf("no author link found in the first posts")
	}

	before := s.page.URL()
	if err := s.click(link); err != nil {
		return s.fail("visit_profile", "could not click author link", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	if s.page.URL() == before {
		return skipf("click did not navigate away from the feed")
	}
	return nil
}

func (s *Session) returnHome(ctx context.Context) error {
	if _, err := s.page.Goto(facebookURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return s.fail("return_home", "navigation back to the feed failed", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	if !strings.Contains(s.page.URL(), "facebook.com") {
		return s.fail("return_home", fmt.Sprintf("unexpected URL after navigation: %s", s.page.URL()), nil)
	}
	s.scrollTop()
	return nil
}

// watchStory opens the first real story (not the "Create story" tile),
// lets it play for a moment, reacts with a like when the viewer offers
// one, and closes the viewer.
func (s *Session) watchStory(ctx context.Context) error {
	s.scrollTop()
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	story, ok := s.findStoryTile()
	if !ok {
		return skipf("no stories available")
	}
	if err := s.click(story); err != nil {
		return skipf("story tile would not open: %v", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	if !strings.Contains(s.page.URL(), "/stories/") && !s.anyVisible("video", "[aria-label='Story viewer']") {
		return skipf("story viewer did not open")
	}

	// Watch for a few seconds like a person would before reacting.
	RandomDelay(ctx, 3*time.Second, 6*time.Second)
	if likeBtn, ok := s.firstVisible(
		"div[role='button'][aria-label='Like']",
		`//span[text()='Like']/ancestor::div[@role='button']`,
	); ok {
		_ = s.click(likeBtn)
		RandomDelay(ctx, 1*time.Second, 2*time.Second)
	}

	s.closeStoryViewer(ctx)
	return nil
}

func (s *Session) findStoryTile() (playwright.Locator, bool) {
	for _, sel := range storySelectors {
		loc := s.page.Locator(sel)
		n, err := loc.Count()
		if err != nil {
			continue
		}
		if n > 8 {
			n = 8
		}
		for i := 0; i < n; i++ {
			tile := loc.Nth(i)
			visible, err := tile.IsVisible()
			if err != nil || !visible {
				continue
			}
			aria, _ := tile.GetAttribute("aria-label")
			text, _ := tile.TextContent()
			label := strings.ToLower(aria + " " + text)
			if strings.Contains(label, "create") || strings.Contains(label, "add") {
				continue
			}
			return tile, true
		}
	}
	return nil, false
}

func (s *Session) closeStoryViewer(ctx context.Context) {
	if closeBtn, ok := s.firstVisible("[aria-label='Close']", "div[role='button'][aria-label='Close']"); ok {
		if s.click(closeBtn) == nil {
			return
		}
	}
	_ = s.page.Keyboard().Press("Escape")
	RandomDelay(ctx, 1*time.Second, 2*time.Second)
	if strings.Contains(s.page.URL(), "/stories/") {
		_, _ = s.page.Goto(facebookURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
	}
}

// likePost likes the first feed post whose Like button is not already
// toggled (a liked post exposes "Remove Like" instead).
func (s *Session) likePost(ctx context.Context) error {
	_ = HumanScroll(ctx, s.page)
	s.scrollTop()
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	likeBtn, ok := s.firstVisible(likeButtonSelectors...)
	if !ok {
		return skipf("no like button found in the visible feed")
	}
	if aria, _ := likeBtn.GetAttribute("aria-label"); strings.Contains(strings.ToLower(aria), "remove") {
		return skipf("first post is already liked")
	}

	if err := s.click(likeBtn); err != nil {
		return s.fail("like_post", "could not click like button", err)
	}
	RandomDelay(ctx, 2*time.Second, 3*time.Second)
	_, _ = s.shots.Capture(s.page, "like_success")
	return nil
}

// commentPost drops a short generated comment on the first post. Typing
// goes character by character with jitter - instant paste is a bot tell.
func (s *Session) commentPost(ctx context.Context) error {
	comment := GenerateComment()

	btn, ok := s.firstVisible(commentButtonSelectors...)
	if !ok {
		return skipf("no comment button found in the visible feed")
	}
	if err := s.click(btn); err != nil {
		return skipf("comment button would not open: %v", err)
	}
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	input, ok := s.lastVisibleTextbox()
	if !ok {
		return s.fail("comment_post", "comment input did not appear", nil)
	}
	if err := s.click(input); err != nil {
		return s.fail("comment_post", "could not focus comment input", err)
	}
	RandomDelay(ctx, 1*time.Second, 2*time.Second)

	if err := input.PressSequentially(comment, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(90),
	}); err != nil {
		return s.fail("comment_post", "typing comment failed", err)
	}
	RandomDelay(ctx, 2*time.Second, 3*time.Second)

	if err := input.Press("Enter"); err != nil {
		return s.fail("comment_post", "submitting comment failed", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	// A post dialog may have opened around the comment box; close it.
	_ = s.page.Keyboard().Press("Escape")
	_, _ = s.shots.Capture(s.page, "comment_success")
	return nil
}

// lastVisibleTextbox picks the most recently mounted contenteditable
// textbox - the comment composer attaches after existing ones.
func (s *Session) lastVisibleTextbox() (playwright.Locator, bool) {
	loc := s.page.Locator("div[role='textbox'][contenteditable='true']")
	n, err := loc.Count()
	if err != nil {
		return nil, false
	}
	for i := n - 1; i >= 0; i-- {
		cand := loc.Nth(i)
		if visible, err := cand.IsVisible(); err == nil && visible {
			return cand, true
		}
	}
	return nil, false
}

// imagePost publishes a stock photo with its attribution caption
// through the composer dialog.
func (s *Session) imagePost(ctx context.Context) error {
	if !s.images.Enabled() {
		return skipf("no stock image API key configured")
	}

	imagePath, caption, err := s.images.FetchRandom(ctx)
	if err != nil {
		return s.fail("image_post", "could not fetch a stock image", err)
	}
	defer s.images.Cleanup()

	if _, err := s.page.Goto(facebookURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return s.fail("image_post", "navigation to the feed failed", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	composer, ok := s.firstVisible(composerSelectors...)
	if !ok {
		return s.fail("image_post", "post composer prompt not found", nil)
	}
	if err := s.click(composer); err != nil {
		return s.fail("image_post", "could not open composer", err)
	}
	RandomDelay(ctx, 2*time.Second, 4*time.Second)

	dialog := s.page.Locator("div[role='dialog']").First()
	if visible, err := dialog.IsVisible(); err != nil || !visible {
		return s.fail("image_post", "composer dialog did not open", err)
	}

	if photoBtn, ok := s.firstVisible(
		"div[role='dialog'] div[aria-label='Photo/video']",
		"div[role='dialog'] div[aria-label='Photo/Video']",
	); ok {
		_ = s.click(photoBtn)
		RandomDelay(ctx, 1*time.Second, 2*time.Second)
	}

	fileInput := s.page.Locator("div[role='dialog'] input[type='file']").First()
	if err := fileInput.SetInputFiles([]string{imagePath}); err != nil {
		return s.fail("image_post", "attaching the image failed", err)
	}
	RandomDelay(ctx, 3*time.Second, 5*time.Second)

	if captionBox, ok := s.firstVisible("div[role='dialog'] div[role='textbox'][contenteditable='true']"); ok {
		if err := s.click(captionBox); err == nil {
			_ = captionBox.PressSequentially(caption, playwright.LocatorPressSequentiallyOptions{
				Delay: playwright.Float(70),
			})
		}
	}
	RandomDelay(ctx, 1*time.Second, 2*time.Second)

	postBtn, ok := s.firstVisible(
		"div[role='dialog'] div[aria-label='Post'][role='button']",
		`//div[@role='dialog']//div[@aria-label='Post']`,
	)
	if !ok {
		return s.fail("image_post", "post button not found in composer", nil)
	}
	if err := s.click(postBtn); err != nil {
		return s.fail("image_post", "could not click post button", err)
	}
	RandomDelay(ctx, 4*time.Second, 6*time.Second)

	// The dialog closing is the submit confirmation.
	if visible, _ := dialog.IsVisible(); visible {
		return s.fail("image_post", "composer dialog still open after posting", nil)
	}
	_, _ = s.shots.Capture(s.page, "image_post_success")
	return nil
}
