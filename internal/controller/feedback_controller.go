package controller

import (
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FeedbackController struct {
	CommentService *service.CommentService
	RatingService  *service.RatingService
	TagService     *service.TagService
}

func NewFeedbackController(commentService *service.CommentService, ratingService *service.RatingService, tagService *service.TagService) *FeedbackController {
	return &FeedbackController{
		CommentService: commentService,
		RatingService:  ratingService,
		TagService:     tagService,
	}
}

// CommentRequest 评论内容
// swagger:model CommentRequest
type CommentRequest struct {
	Content string `json:"content" binding:"required,notblank,max=5000"`
}

// TagRequest 标签名
// swagger:model TagRequest
type TagRequest struct {
	Name string `json:"name" binding:"required,notblank"`
}

// CreateComment godoc
// @Summary 评论课程
// @Tags 评论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param   body body CommentRequest true "评论"
// @Success 201 {object} util.Response{data=model.LessonComment}
// @Router /api/lessons/{id}/comments [post]
func (c *FeedbackController) CreateComment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	comment, err := c.CommentService.Create(ctx.Request.Context(), actor.UserID, ctx.Param("id"), req.Content)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, comment)
}

// ListComments godoc
// @Summary 课程评论列表
// @Tags 评论
// @Produce  json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.LessonComment}
// @Router /api/lessons/{id}/comments [get]
func (c *FeedbackController) ListComments(ctx *gin.Context) {
	comments, err := c.CommentService.ListByLesson(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comments)
}

// UpdateComment godoc
// @Summary 修改评论（作者）
// @Tags 评论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "评论ID"
// @Param   body body CommentRequest true "评论"
// @Success 200 {object} util.Response{data=model.LessonComment}
// @Router /api/comments/{id} [put]
func (c *FeedbackController) UpdateComment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	comment, err := c.CommentService.Update(actor, util.MustParseUint(ctx.Param("id")), req.Content)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comment)
}

// DeleteComment godoc
// @Summary 删除评论（作者）
// @Tags 评论
// @Security ApiKeyAuth
// @Param id path int true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/comments/{id} [delete]
func (c *FeedbackController) DeleteComment(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	if err := c.CommentService.Delete(actor, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id")})
}

// RateLesson godoc
// @Summary 评分（Clarity / Accuracy / Engaging，1-5 分）
// @Tags 评分
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param   body body service.RatingInput true "评分"
// @Success 200 {object} util.Response{data=model.Rating}
// @Failure 400 {object} util.Response "维度或分数无效"
// @Router /api/lessons/{id}/ratings [put]
func (c *FeedbackController) RateLesson(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.RatingInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rating, err := c.RatingService.Rate(ctx.Request.Context(), actor.UserID, ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rating)
}

// DeleteRatings godoc
// @Summary 撤销评分
// @Description 指定 category 时只撤销该维度，否则撤销本人对课程的全部评分
// @Tags 评分
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param category query string false "评分维度"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "未评分"
// @Router /api/lessons/{id}/ratings [delete]
func (c *FeedbackController) DeleteRatings(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	category := model.RatingCategory(ctx.Query("category"))
	if err := c.RatingService.Delete(actor.UserID, ctx.Param("id"), category); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetRatings godoc
// @Summary 课程各维度平均分
// @Description 携带 token 时同时返回本人的评分
// @Tags 评分
// @Produce  json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.RatingSummary}
// @Router /api/lessons/{id}/ratings [get]
func (c *FeedbackController) GetRatings(ctx *gin.Context) {
	summary, err := c.RatingService.Summary(optionalUserID(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// ListTags godoc
// @Summary 课程标签
// @Tags 标签
// @Produce  json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/lessons/{id}/tags [get]
func (c *FeedbackController) ListTags(ctx *gin.Context) {
	tags, err := c.TagService.ListByLesson(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

// AddTag godoc
// @Summary 添加标签（作者）
// @Tags 标签
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param   body body TagRequest true "标签"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/lessons/{id}/tags [post]
func (c *FeedbackController) AddTag(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req TagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tags, err := c.TagService.Add(actor, ctx.Param("id"), req.Name)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

// RemoveTag godoc
// @Summary 移除标签（作者）
// @Tags 标签
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param tag path string true "标签"
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/lessons/{id}/tags/{tag} [delete]
func (c *FeedbackController) RemoveTag(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	tags, err := c.TagService.Remove(actor, ctx.Param("id"), ctx.Param("tag"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}
