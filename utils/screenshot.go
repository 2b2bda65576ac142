package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ScreenShotDebugger captures timestamped full-page screenshots so step
// failures come with visual evidence.
type ScreenShotDebugger struct {
	outputDir string
}

func NewScreenShotDebugger(dir string) *ScreenShotDebugger {
	if dir == "" {
		dir = filepath.Join(".", "warmupss")
	}
	os.MkdirAll(dir, 0755)
	return &ScreenShotDebugger{
		outputDir: dir,
	}
}

// Capture saves a screenshot and returns its path.
func (s *ScreenShotDebugger) Capture(page playwright.Page, name string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.png", name, timestamp)
	path := filepath.Join(s.outputDir, filename)

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		log.Printf("⚠️ Failed to capture screenshot %s: %v", name, err)
		return "", err
	}
	return path, nil
}

// CaptureAndLog saves a screenshot and logs where it went.
func (s *ScreenShotDebugger) CaptureAndLog(page playwright.Page, name, message string) (string, error) {
	log.Printf("📸 %s", message)
	path, err := s.Capture(page, name)
	if err != nil {
		return "", err
	}
	log.Printf("   Screenshot saved: %s", path)
	return path, nil
}
