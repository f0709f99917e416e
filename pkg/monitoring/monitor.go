package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	QuestCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_completions_total",
			Help: "Number of quest completion events",
		},
		[]string{"quest"},
	)

	ExperienceAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "experience_points_awarded_total",
			Help: "Experience points granted by quest completions",
		},
	)

	// ImageInlineDuration 单次批量内联图片耗时，result 为 ok 或 error
	ImageInlineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lesson_image_inline_duration_seconds",
			Help:    "Duration of lesson image inlining batches",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 15},
		},
		[]string{"result"},
	)

	RenderCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_render_cache_lookups_total",
			Help: "Rendered fragment cache lookups",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Init 注册全部指标，重复调用安全
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(QuestCompletions)
		prometheus.MustRegister(ExperienceAwarded)
		prometheus.MustRegister(ImageInlineDuration)
		prometheus.MustRegister(RenderCacheLookups)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
