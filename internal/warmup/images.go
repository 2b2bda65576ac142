package warmup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Search queries cycled through when fetching a stock photo to post.
var imageQueries = []string{
	"nature", "landscape", "sunset", "ocean", "mountains", "forest",
	"city", "architecture", "travel", "food", "coffee", "technology",
	"fitness", "yoga", "motivation", "success", "business", "workspace",
	"flowers", "animals", "beach", "sky", "art", "abstract", "minimal",
}

var errNoImageSource = errors.New("no stock image source configured")

// ImageFetcher downloads a random stock photo from Pexels or Unsplash
// for the image post step.
type ImageFetcher struct {
	pexelsKey   string
	unsplashKey string
	dir         string
	client      *http.Client

	// overridable in tests
	pexelsBase   string
	unsplashBase string
}

func NewImageFetcher(pexelsKey, unsplashKey, dir string) *ImageFetcher {
	if dir == "" {
		dir = "temp_images"
	}
	return &ImageFetcher{
		pexelsKey:    pexelsKey,
		unsplashKey:  unsplashKey,
		dir:          dir,
		client:       &http.Client{Timeout: 15 * time.Second},
		pexelsBase:   "https://api.pexels.com",
		unsplashBase: "https://api.unsplash.com",
	}
}

func (f *ImageFetcher) Enabled() bool {
	return f.pexelsKey != "" || f.unsplashKey != ""
}

// FetchRandom downloads a random image and returns its local path plus
// a caption crediting the photographer. Sources are tried in random
// order so neither API carries all the traffic.
func (f *ImageFetcher) FetchRandom(ctx context.Context) (string, string, error) {
	var sources []func(context.Context, string) (string, string, error)
	if f.pexelsKey != "" {
		sources = append(sources, f.fetchPexels)
	}
	if f.unsplashKey != "" {
		sources = append(sources, f.fetchUnsplash)
	}
	if len(sources) == 0 {
		return "", "", errNoImageSource
	}
	rand.Shuffle(len(sources), func(i, j int) { sources[i], sources[j] = sources[j], sources[i] })

	query := imageQueries[rand.Intn(len(imageQueries))]
	var lastErr error
	for _, fetch := range sources {
		path, caption, err := fetch(ctx, query)
		if err == nil {
			return path, caption, nil
		}
		lastErr = err
	}
	return "", "", lastErr
}

func (f *ImageFetcher) fetchPexels(ctx context.Context, query string) (string, string, error) {
	u := fmt.Sprintf("%s/v1/search?query=%s&per_page=20&orientation=landscape",
		f.pexelsBase, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", f.pexelsKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("pexels request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("pexels: unexpected status %s", resp.Status)
	}

	var payload struct {
		Photos []struct {
			Alt          string `json:"alt"`
			Photographer string `json:"photographer"`
			Src          struct {
				Large string `json:"large"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("pexels: decode response: %w", err)
	}
	if len(payload.Photos) == 0 {
		return "", "", fmt.Errorf("pexels: no photos for %q", query)
	}

	photo := payload.Photos[rand.Intn(len(payload.Photos))]
	path, err := f.download(ctx, photo.Src.Large, "pexels")
	if err != nil {
		return "", "", err
	}
	return path, buildCaption(photo.Alt, photo.Photographer, query), nil
}

func (f *ImageFetcher) fetchUnsplash(ctx context.Context, query string) (string, string, error) {
	u := fmt.Sprintf("%s/photos/random?query=%s&orientation=landscape&content_filter=high&client_id=%s",
		f.unsplashBase, url.QueryEscape(query), url.QueryEscape(f.unsplashKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("unsplash request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unsplash: unexpected status %s", resp.Status)
	}

	var payload struct {
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("unsplash: decode response: %w", err)
	}

	description := payload.Description
	if description == "" {
		description = payload.AltDescription
	}
	path, err := f.download(ctx, payload.URLs.Regular, "unsplash")
	if err != nil {
		return "", "", err
	}
	return path, buildCaption(description, payload.User.Name, query), nil
}

func (f *ImageFetcher) download(ctx context.Context, imageURL, source string) (string, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", f.dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: unexpected status %s", resp.Status)
	}

	path := filepath.Join(f.dir, fmt.Sprintf("%s_%d.jpg", source, time.Now().UnixNano()))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup removes downloaded images once they have been posted.
func (f *ImageFetcher) Cleanup() {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			os.Remove(filepath.Join(f.dir, e.Name()))
		}
	}
}

func buildCaption(description, photographer, query string) string {
	if description == "" {
		description = capitalize(query)
	}
	if photographer != "" {
		return description + "\nPhoto by " + photographer
	}
	return description
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]&^0x20) + s[1:]
}
