package controller

import (
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MediaController struct {
	StorageService *service.StorageService
}

func NewMediaController(storageService *service.StorageService) *MediaController {
	return &MediaController{StorageService: storageService}
}

// UploadImage godoc
// @Summary 上传图片
// @Description 返回的地址可直接用于课程内容中的 "!image:" 块
// @Tags 媒体
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param file formData file true "图片文件"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/media/images [post]
func (c *MediaController) UploadImage(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.StorageService.UploadImage(ctx.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
