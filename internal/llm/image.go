package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/attachments"
)

const maxImageBytes = 20 << 20

// ImageLoader resolves a capture's file reference into image bytes. References
// are either http(s) URLs or file names inside the attachments directory.
type ImageLoader struct {
	client    *http.Client
	attachDir string
	// checkHost refuses internal hosts, on the first request and on every redirect.
	checkHost func(host string) error
}

// NewImageLoader creates a loader. timeout <= 0 leaves the HTTP client without a timeout.
func NewImageLoader(attachDir string, timeout time.Duration) *ImageLoader {
	l := &ImageLoader{attachDir: attachDir, checkHost: attachments.CheckHost}
	l.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return l.checkHost(req.URL.Hostname())
		},
	}
	return l
}

// Load fetches the referenced image.
func (l *ImageLoader) Load(ctx context.Context, ref string) (*Image, error) {
	if attachments.IsRemote(ref) {
		return l.fetch(ctx, ref)
	}
	return l.readLocal(ref)
}

func (l *ImageLoader) fetch(ctx context.Context, url string) (*Image, error) {
	if err := l.checkRemote(url); err != nil {
		return nil, fmt.Errorf("llm: fetch image: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("llm: image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("llm: fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("llm: read image: %w", err)
	}
	return &Image{MediaType: MediaType(resp.Header.Get("Content-Type")), Data: data}, nil
}

func (l *ImageLoader) checkRemote(rawURL string) error {
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return err
	}
	return l.checkHost(parsed.Hostname())
}

func (l *ImageLoader) readLocal(name string) (*Image, error) {
	name = strings.TrimPrefix(name, "/attachments/")
	if name == "" || filepath.Base(name) != name || name == ".." {
		return nil, fmt.Errorf("llm: invalid attachment name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(l.attachDir, name))
	if err != nil {
		return nil, fmt.Errorf("llm: read attachment: %w", err)
	}
	return &Image{MediaType: MediaType(filepath.Ext(name)), Data: data}, nil
}

// MediaType maps a Content-Type header or file extension onto one of the image
// types the model accepts. Anything unrecognised is treated as JPEG.
func MediaType(hint string) string {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "png"):
		return "image/png"
	case strings.Contains(h, "gif"):
		return "image/gif"
	case strings.Contains(h, "webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
