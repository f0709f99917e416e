package controller

import (
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// actorFrom 需在 AuthMiddleware 之后使用
func actorFrom(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.UserID, Admin: claims.IsAdmin()}, true
}

// optionalUserID 游客返回 0
func optionalUserID(ctx *gin.Context) uint {
	if claims := util.GetUserFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return 0
}
