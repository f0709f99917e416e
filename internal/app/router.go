package app

import (
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/middleware"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerMemberRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users/:id/progression", c.progression.GetUserProgression)
	}

	router.NoRoute(func(ctx *gin.Context) {
		util.NotFound(ctx)
	})
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/quests/catalog", c.progression.GetCatalog)
		public.GET("/leaderboard", c.progression.GetLeaderboard)

		public.POST("/lessons/preview", c.lesson.Preview)
		public.GET("/lessons", c.lesson.ListLessons)
		public.GET("/lessons/recent", c.lesson.RecentLessons)
		public.GET("/lessons/search", c.lesson.SearchLessons)
		public.GET("/lessons/:id", c.lesson.GetLesson)
		public.GET("/lessons/:id/render", c.lesson.RenderLesson)
		public.GET("/lessons/:id/comments", c.feedback.ListComments)
		// 可选认证：登录用户额外返回自己的评分
		public.GET("/lessons/:id/ratings", middleware.TryAuthMiddleware(cfg), c.feedback.GetRatings)
		public.GET("/lessons/:id/tags", c.feedback.ListTags)
		public.GET("/tags/:tag/lessons", c.lesson.LessonsByTag)

		public.GET("/showcases", c.showcase.ListShowcases)
		public.GET("/showcases/:id", c.showcase.GetShowcase)
		public.GET("/showcases/:id/render", c.showcase.RenderShowcase)
	}
}

func (a *App) registerMemberRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.Profile)
	group.PUT("/profile", c.auth.UpdateProfile)
	group.DELETE("/profile", c.auth.DeleteProfile)
	group.GET("/progression", c.progression.GetProgression)

	// 课程
	group.POST("/lessons", c.lesson.CreateLesson)
	group.PUT("/lessons/:id", c.lesson.UpdateLesson)
	group.DELETE("/lessons/:id", c.lesson.DeleteLesson)

	// 评论、评分、标签
	group.POST("/lessons/:id/comments", c.feedback.CreateComment)
	group.PUT("/comments/:id", c.feedback.UpdateComment)
	group.DELETE("/comments/:id", c.feedback.DeleteComment)
	group.PUT("/lessons/:id/ratings", c.feedback.RateLesson)
	group.DELETE("/lessons/:id/ratings", c.feedback.DeleteRatings)
	group.POST("/lessons/:id/tags", c.feedback.AddTag)
	group.DELETE("/lessons/:id/tags/:tag", c.feedback.RemoveTag)

	// 作品
	group.POST("/showcases", c.showcase.CreateShowcase)
	group.PUT("/showcases/:id", c.showcase.UpdateShowcase)
	group.DELETE("/showcases/:id", c.showcase.DeleteShowcase)

	// 媒体
	group.POST("/media/images", c.media.UploadImage)
}
