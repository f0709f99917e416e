package controller

import (
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// PreviewRequest 预览只需要原始内容
// swagger:model PreviewRequest
type PreviewRequest struct {
	Content string `json:"content" binding:"required"`
}

// Preview godoc
// @Summary 预览课程内容
// @Description 解析并渲染原始文本，不抓取图片也不保存
// @Tags 课程
// @Accept  json
// @Produce  json
// @Param   body body PreviewRequest true "原始内容"
// @Success 200 {object} util.Response{data=service.Preview}
// @Router /api/lessons/preview [post]
func (c *LessonController) Preview(ctx *gin.Context) {
	var req PreviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	preview, err := c.LessonService.Preview(req.Content)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, preview)
}

// CreateLesson godoc
// @Summary 创建课程
// @Description 内容按 "---" 分块，图片内联为 data URI
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.LessonInput true "课程"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "标题或内容无效"
// @Failure 422 {object} util.Response "图片处理失败"
// @Router /api/lessons [post]
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Create(ctx.Request.Context(), actor.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课程（作者）
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param   body body service.LessonInput true "课程"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 403 {object} util.Response "非作者"
// @Router /api/lessons/{id} [put]
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Update(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课程（作者）
// @Tags 课程
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id} [delete]
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	if err := c.LessonService.Delete(actor, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id")})
}

// GetLesson godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 404 {object} util.Response
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	lesson, err := c.LessonService.Get(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// RenderLesson godoc
// @Summary 课程渲染后的 HTML 片段
// @Tags 课程
// @Produce  json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/lessons/{id}/render [get]
func (c *LessonController) RenderLesson(ctx *gin.Context) {
	fragments, err := c.LessonService.Render(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id"), "fragments": fragments})
}

// ListLessons godoc
// @Summary 课程列表
// @Tags 课程
// @Produce  json
// @Param userId query int false "作者ID"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	var userID uint
	if raw := ctx.Query("userId"); raw != "" {
		if userID = util.MustParseUint(raw); userID == 0 {
			util.BadRequest(ctx, "invalid userId")
			return
		}
	}

	lessons, err := c.LessonService.List(userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// RecentLessons godoc
// @Summary 最近修改的课程
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/lessons/recent [get]
func (c *LessonController) RecentLessons(ctx *gin.Context) {
	lessons, err := c.LessonService.Recent()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// SearchLessons godoc
// @Summary 按标题搜索课程
// @Tags 课程
// @Produce  json
// @Param name query string true "标题关键字"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/lessons/search [get]
func (c *LessonController) SearchLessons(ctx *gin.Context) {
	lessons, err := c.LessonService.Search(ctx.Query("name"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// LessonsByTag godoc
// @Summary 带有某标签的课程
// @Tags 标签
// @Produce  json
// @Param tag path string true "标签"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/tags/{tag}/lessons [get]
func (c *LessonController) LessonsByTag(ctx *gin.Context) {
	lessons, err := c.LessonService.ByTag(ctx.Param("tag"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}
