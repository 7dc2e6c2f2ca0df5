package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/secondbrain/internal/apperr"
	"github.com/starford/secondbrain/internal/attachments"
)

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func fakeAPI(t *testing.T, status int, reply string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteText(t *testing.T) {
	var got capturedRequest
	srv := fakeAPI(t, http.StatusOK, `{"action":"create"}`, &got)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Model: "test-model"})

	out, err := c.Complete(context.Background(), Request{System: "sys", User: "hello", MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"action":"create"}` {
		t.Errorf("out = %q", out)
	}
	if got.Model != "test-model" || got.MaxTokens != 2048 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestCompleteWithImageSendsParts(t *testing.T) {
	var got capturedRequest
	srv := fakeAPI(t, http.StatusOK, "ok", &got)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"})

	_, err := c.Complete(context.Background(), Request{User: "look", Image: &Image{MediaType: "image/png", Data: []byte{1, 2, 3}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("messages = %d", len(got.Messages))
	}
	content := string(got.Messages[0].Content)
	if !strings.Contains(content, "data:image/png;base64,AQID") {
		t.Errorf("image part missing: %s", content)
	}
	if !strings.Contains(content, `"look"`) {
		t.Errorf("text part missing: %s", content)
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	c := NewClient(Config{Model: "m"})
	if c.Configured() {
		t.Fatal("client without key reports configured")
	}
	_, err := c.Complete(context.Background(), Request{User: "x"})
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := fakeAPI(t, http.StatusInternalServerError, "", nil)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m"})
	_, err := c.Complete(context.Background(), Request{User: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("transport error reported as configuration error")
	}
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"image/png":                "image/png",
		"image/GIF":                "image/gif",
		".webp":                    "image/webp",
		"image/jpeg; charset=x":    "image/jpeg",
		"application/octet-stream": "image/jpeg",
		"":                         "image/jpeg",
	}
	for in, want := range tests {
		if got := MediaType(in); got != want {
			t.Errorf("MediaType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	l := NewImageLoader(t.TempDir(), 0)
	l.checkHost = func(string) error { return nil } // httptest listens on loopback
	img, err := l.Load(context.Background(), srv.URL+"/a.webp")
	if err != nil {
		t.Fatal(err)
	}
	if img.MediaType != "image/webp" || string(img.Data) != "img" {
		t.Errorf("image = %+v", img)
	}
	if _, err := l.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestImageLoaderRefusesInternalHosts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("internal-secret"))
	}))
	defer srv.Close()

	l := NewImageLoader(t.TempDir(), 0)
	for _, ref := range []string{
		srv.URL + "/meta",
		"http://localhost/a.png",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/a.png",
	} {
		img, err := l.Load(context.Background(), ref)
		if !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Load(%q) = %+v, %v; want ErrInvalid", ref, img, err)
		}
	}
	if hits != 0 {
		t.Errorf("server was contacted %d times", hits)
	}
}

func TestImageLoaderRefusesRedirectToInternalHost(t *testing.T) {
	internalHits := 0
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits++
		_, _ = w.Write([]byte("internal-secret"))
	}))
	defer internal.Close()
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, strings.Replace(internal.URL, "127.0.0.1", "localhost", 1)+"/meta", http.StatusFound)
	}))
	defer public.Close()

	l := NewImageLoader(t.TempDir(), 0)
	// 127.0.0.1 stands in for a public host; the redirect target goes through the real check.
	l.checkHost = func(host string) error {
		if host == "127.0.0.1" {
			return nil
		}
		return attachments.CheckHost(host)
	}
	if _, err := l.Load(context.Background(), public.URL+"/a.png"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if internalHits != 0 {
		t.Errorf("redirect target was contacted %d times", internalHits)
	}
}

func TestImageLoaderLocal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "photo.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewImageLoader(dir, 0)

	img, err := l.Load(context.Background(), "/attachments/photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if img.MediaType != "image/png" || string(img.Data) != "png" {
		t.Errorf("image = %+v", img)
	}
	for _, bad := range []string{"../etc/passwd", "sub/photo.png", ""} {
		if _, err := l.Load(context.Background(), bad); err == nil {
			t.Errorf("Load(%q) should fail", bad)
		}
	}
}
