package service

import (
	"bytes"
	"context"
	"errors"
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/content"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/monitoring"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPreviewDoesNotFetchImages(t *testing.T) {
	fetcher := &stubFetcher{}
	s := &ContentService{Renderer: content.NewRenderer(nil), Inliner: content.NewInliner(fetcher, time.Second, 1)}

	p, err := s.Preview("Hello---!image: https://img/a.png")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(p.Content) != 2 || len(p.Fragments) != 2 {
		t.Fatalf("preview: chunks=%d fragments=%d", len(p.Content), len(p.Fragments))
	}
	if fetcher.calls != 0 {
		t.Fatalf("preview fetched %d images", fetcher.calls)
	}
}

func TestPrepareWrapsInlineErrors(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("boom")}
	s := &ContentService{Renderer: content.NewRenderer(nil), Inliner: content.NewInliner(fetcher, time.Second, 1)}

	_, err := s.Prepare(context.Background(), "t", "!image: https://img/a.png")
	if !errors.Is(err, util.ErrLessonMedia) {
		t.Fatalf("want ErrLessonMedia, got=%v", err)
	}
	var inlineErr *content.InlineError
	if !errors.As(err, &inlineErr) {
		t.Fatalf("want InlineError in chain, got=%v", err)
	}
}

func TestRenderCachesFragmentsInRedis(t *testing.T) {
	monitoring.Init()
	mr, rdb := newTestRedis(t)
	s := &ContentService{Renderer: content.NewRenderer(nil), Redis: rdb, CacheTTL: time.Minute}

	chunks := []content.Chunk{{ContentType: content.ContentTypeText, Content: "# Title\n\nbody"}}
	version := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hits := testutil.ToFloat64(monitoring.RenderCacheLookups.WithLabelValues("hit"))

	first, err := s.Render(context.Background(), "lesson", "abc", version, chunks)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	key := renderCacheKey("lesson", "abc", version)
	if !mr.Exists(key) {
		t.Fatalf("cache key %s not written", key)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("ttl: want=1m got=%v", ttl)
	}

	// 缓存命中时不再使用传入的内容块
	second, err := s.Render(context.Background(), "lesson", "abc", version, nil)
	if err != nil {
		t.Fatalf("Render cached: %v", err)
	}
	if strings.Join(first, "") != strings.Join(second, "") || len(second) != 2 {
		t.Fatalf("cached fragments: first=%q second=%q", first, second)
	}
	if got := testutil.ToFloat64(monitoring.RenderCacheLookups.WithLabelValues("hit")); got != hits+1 {
		t.Fatalf("hit counter: want=%v got=%v", hits+1, got)
	}

	other, _ := s.Render(context.Background(), "lesson", "abc", version.Add(time.Second), nil)
	if len(other) != 0 {
		t.Fatalf("new version served from stale cache: %q", other)
	}
}

func TestRenderWithoutRedis(t *testing.T) {
	s := &ContentService{Renderer: content.NewRenderer(nil)}
	out, err := s.Render(context.Background(), "lesson", "x", time.Now(), []content.Chunk{{ContentType: content.ContentTypeText}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) != 1 || out[0] != "<p></p>" {
		t.Fatalf("empty text chunk: %q", out)
	}
}

func TestUploadImageToLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewStorageService(&config.Config{Storage: config.StorageConfig{
		Type:          util.StorageLocal,
		LocalPath:     dir,
		PublicBaseURL: "http://localhost:8080/",
	}})
	s.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	url, err := s.UploadImage(context.Background(), "photo.PNG", bytes.NewReader(pngPayload), int64(len(pngPayload)))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	prefix := "http://localhost:8080/uploads/images/2024/05/"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url: %s", url)
	}

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "http://localhost:8080/uploads/"))))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, pngPayload) {
		t.Fatalf("stored bytes differ")
	}
}

func TestUploadImageRejectsNonImages(t *testing.T) {
	s := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()}})
	body := []byte("<html><body>not an image</body></html>")

	if _, err := s.UploadImage(context.Background(), "page.png", bytes.NewReader(body), int64(len(body))); !errors.Is(err, util.ErrInvalidFileType) {
		t.Fatalf("html body: got=%v", err)
	}
	if _, err := s.UploadImage(context.Background(), "payload.exe", bytes.NewReader(pngPayload), int64(len(pngPayload))); !errors.Is(err, util.ErrInvalidFileType) {
		t.Fatalf("bad extension: got=%v", err)
	}
	if http.DetectContentType(pngPayload) != "image/png" {
		t.Fatalf("fixture is not detected as png")
	}
}

func TestUploadImageServesThroughHTTP(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir))))
	defer srv.Close()

	s := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: dir, PublicBaseURL: srv.URL}})
	url, err := s.UploadImage(context.Background(), "a.png", bytes.NewReader(pngPayload), int64(len(pngPayload)))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	data, mime, err := content.NewHTTPFetcher(srv.Client(), 0).Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch uploaded image: %v", err)
	}
	if !bytes.Equal(data, pngPayload) || !strings.HasPrefix(mime, "image/png") {
		t.Fatalf("fetched: mime=%q len=%d", mime, len(data))
	}
}
