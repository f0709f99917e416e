package controller

import (
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ShowcaseController struct {
	ShowcaseService *service.ShowcaseService
}

func NewShowcaseController(showcaseService *service.ShowcaseService) *ShowcaseController {
	return &ShowcaseController{ShowcaseService: showcaseService}
}

// CreateShowcase godoc
// @Summary 提交作品
// @Tags 作品
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ShowcaseInput true "作品"
// @Success 201 {object} util.Response{data=model.Showcase}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/showcases [post]
func (c *ShowcaseController) CreateShowcase(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.ShowcaseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	showcase, err := c.ShowcaseService.Create(ctx.Request.Context(), actor.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, showcase)
}

// UpdateShowcase godoc
// @Summary 更新作品（作者）
// @Tags 作品
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "作品ID"
// @Param   body body service.LessonInput true "标题与内容"
// @Success 200 {object} util.Response{data=model.Showcase}
// @Router /api/showcases/{id} [put]
func (c *ShowcaseController) UpdateShowcase(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	showcase, err := c.ShowcaseService.Update(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, showcase)
}

// DeleteShowcase godoc
// @Summary 删除作品（作者）
// @Tags 作品
// @Security ApiKeyAuth
// @Param id path string true "作品ID"
// @Success 200 {object} util.Response
// @Router /api/showcases/{id} [delete]
func (c *ShowcaseController) DeleteShowcase(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	if err := c.ShowcaseService.Delete(actor, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id")})
}

// GetShowcase godoc
// @Summary 作品详情
// @Tags 作品
// @Produce  json
// @Param id path string true "作品ID"
// @Success 200 {object} util.Response{data=model.Showcase}
// @Router /api/showcases/{id} [get]
func (c *ShowcaseController) GetShowcase(ctx *gin.Context) {
	showcase, err := c.ShowcaseService.Get(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, showcase)
}

// RenderShowcase godoc
// @Summary 作品渲染后的 HTML 片段
// @Tags 作品
// @Produce  json
// @Param id path string true "作品ID"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/showcases/{id}/render [get]
func (c *ShowcaseController) RenderShowcase(ctx *gin.Context) {
	fragments, err := c.ShowcaseService.Render(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id"), "fragments": fragments})
}

// ListShowcases godoc
// @Summary 作品列表
// @Tags 作品
// @Produce  json
// @Param lessonId query string false "课程ID"
// @Param userId query int false "作者ID"
// @Success 200 {object} util.Response{data=[]model.Showcase}
// @Router /api/showcases [get]
func (c *ShowcaseController) ListShowcases(ctx *gin.Context) {
	filter := repository.ShowcaseFilter{LessonID: ctx.Query("lessonId")}
	if raw := ctx.Query("userId"); raw != "" {
		if filter.UserID = util.MustParseUint(raw); filter.UserID == 0 {
			util.BadRequest(ctx, "invalid userId")
			return
		}
	}

	showcases, err := c.ShowcaseService.Find(filter)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, showcases)
}
