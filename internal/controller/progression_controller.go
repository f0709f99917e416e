package controller

import (
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	ProgressionService *service.ProgressionService
}

func NewProgressionController(progressionService *service.ProgressionService) *ProgressionController {
	return &ProgressionController{ProgressionService: progressionService}
}

// GetProgression godoc
// @Summary 当前用户的经验、等级与任务
// @Tags 成长
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressionView}
// @Router /api/progression [get]
func (c *ProgressionController) GetProgression(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	view, err := c.ProgressionService.View(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetUserProgression godoc
// @Summary 查看指定用户的成长信息（管理员）
// @Tags 成长
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.ProgressionView}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/progression [get]
func (c *ProgressionController) GetUserProgression(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	view, err := c.ProgressionService.View(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetCatalog godoc
// @Summary 任务目录
// @Tags 成长
// @Produce  json
// @Success 200 {object} util.Response{data=[]progression.QuestTemplate}
// @Router /api/quests/catalog [get]
func (c *ProgressionController) GetCatalog(ctx *gin.Context) {
	util.Success(ctx, c.ProgressionService.Templates())
}

// GetLeaderboard godoc
// @Summary 经验排行榜
// @Tags 成长
// @Produce  json
// @Param limit query int false "数量，默认 10，最大 100"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *ProgressionController) GetLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	entries, err := c.ProgressionService.Leaderboard(limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
