package content

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"lesson_quest_backend/pkg/monitoring"
	"lesson_quest_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultMaxImageBytes = 5 << 20
	DefaultConcurrency   = 4
)

var (
	ErrNotAnImage     = errors.New("resource is not an image")
	ErrImageTooLarge  = errors.New("image exceeds size limit")
	ErrInvalidDataURI = errors.New("invalid data uri")
)

// Fetcher 根据 URL 获取二进制内容及其 MIME 类型
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPFetcher 基于 net/http 的 Fetcher
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = NewGuardedClient()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &HTTPFetcher{Client: client, MaxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(url), nil)
	if err != nil {
		return nil, "", err
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: scheme %q", ErrBlockedAddress, req.URL.Scheme)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("http %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(b)) > f.MaxBytes {
		return nil, "", ErrImageTooLarge
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}
	return b, mediaType, nil
}

// InlineError 记录导致整批失败的内容块
type InlineError struct {
	Index int
	URL   string
	Err   error
}

func (e *InlineError) Error() string {
	return fmt.Sprintf("inline image chunk %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *InlineError) Unwrap() error {
	return e.Err
}

// Inliner 把图片块的外链替换为 data URI
type Inliner struct {
	fetcher     Fetcher
	timeout     time.Duration
	concurrency int
}

func NewInliner(fetcher Fetcher, timeout time.Duration, concurrency int) *Inliner {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Inliner{fetcher: fetcher, timeout: timeout, concurrency: concurrency}
}

// Inline 并发解析全部图片块，任一失败则整批失败；输出顺序与输入一致
func (in *Inliner) Inline(ctx context.Context, chunks []Chunk) ([]Chunk, error) {
	start := time.Now()
	ctx, span := tracing.Tracer.Start(ctx, "content.Inline")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	out := make([]Chunk, len(chunks))
	copy(out, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	images := 0
	for i, chunk := range chunks {
		if chunk.ContentType != ContentTypeImage || IsDataURI(chunk.Content) {
			continue
		}
		images++
		i, link := i, chunk.Content
		g.Go(func() error {
			dataURI, err := in.resolve(gctx, link)
			if err != nil {
				return &InlineError{Index: i, URL: link, Err: err}
			}
			out[i] = Chunk{ContentType: ContentTypeImage, Content: dataURI}
			return nil
		})
	}
	span.SetAttributes(attribute.Int("content.images", images))

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		monitoring.ImageInlineDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	monitoring.ImageInlineDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return out, nil
}

func (in *Inliner) resolve(ctx context.Context, link string) (string, error) {
	payload, mediaType, err := in.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mediaType, "image/") {
		// 部分源站返回 application/octet-stream，按内容嗅探
		mediaType = http.DetectContentType(payload)
	}
	if !IsRenderableImageType(mediaType) {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, mediaType)
	}
	return EncodeDataURI(mediaType, payload), nil
}

// 渲染器只保留这些类型的 data URI，其余会被输出为空 src
var renderableImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

func IsRenderableImageType(mediaType string) bool {
	return renderableImageTypes[strings.ToLower(mediaType)]
}

// EncodeDataURI 生成 base64 data URI
func EncodeDataURI(mediaType string, payload []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

// DecodeDataURI 解析 base64 data URI
func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, ErrInvalidDataURI
	}
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, ErrInvalidDataURI
	}
	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mediaType, payload, nil
}

func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
