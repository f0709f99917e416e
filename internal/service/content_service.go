package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/content"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/logger"
	"lesson_quest_backend/pkg/monitoring"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ContentService 课程/作品内容的解析、图片内联与渲染
type ContentService struct {
	Renderer *content.Renderer
	Inliner  *content.Inliner
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewContentService(cfg *config.Config, rdb *redis.Client) *ContentService {
	fetcher := content.NewHTTPFetcher(nil, cfg.Media.MaxImageBytes)
	return &ContentService{
		Renderer: content.NewRenderer(nil),
		Inliner:  content.NewInliner(fetcher, cfg.Media.FetchTimeout, cfg.Media.Concurrency),
		Redis:    rdb,
		CacheTTL: cfg.Media.RenderCacheTTL,
	}
}

// Preview 解析并渲染，不抓取图片也不保存
type Preview struct {
	Content   []content.Chunk `json:"content"`
	Fragments []string        `json:"fragments"`
}

func (s *ContentService) Preview(raw string) (*Preview, error) {
	chunks := content.Parse(raw)
	fragments, err := s.Renderer.Render(chunks)
	if err != nil {
		return nil, err
	}
	return &Preview{Content: chunks, Fragments: fragments}, nil
}

// Prepare 校验标题与内容，解析后将图片内联为 data URI
func (s *ContentService) Prepare(ctx context.Context, title, raw string) ([]content.Chunk, error) {
	if !util.IsNotBlank(title) {
		return nil, util.ErrInvalidTitle
	}
	chunks := content.Parse(raw)
	if content.IsEmpty(chunks) {
		return nil, util.ErrInvalidContent
	}
	inlined, err := s.Inliner.Inline(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrLessonMedia, err)
	}
	return inlined, nil
}

func renderCacheKey(kind, id string, version time.Time) string {
	return fmt.Sprintf("lesson_quest:render:%s:%s:%d", kind, id, version.UnixNano())
}

// Render 渲染已保存的内容；启用 Redis 时按 (类型, id, 修改时间) 缓存
func (s *ContentService) Render(ctx context.Context, kind, id string, version time.Time, chunks []content.Chunk) ([]string, error) {
	if s.Redis == nil {
		return s.Renderer.Render(chunks)
	}

	key := renderCacheKey(kind, id, version)
	val, err := s.Redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var fragments []string
		if jsonErr := json.Unmarshal([]byte(val), &fragments); jsonErr == nil {
			monitoring.RenderCacheLookups.WithLabelValues("hit").Inc()
			return fragments, nil
		}
	case err != redis.Nil:
		logger.Log.Warn("Render cache read failed", zap.String("key", key), zap.Error(err))
	}
	monitoring.RenderCacheLookups.WithLabelValues("miss").Inc()

	fragments, err := s.Renderer.Render(chunks)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(fragments); err == nil {
		if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
			logger.Log.Warn("Render cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return fragments, nil
}
