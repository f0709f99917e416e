package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrShowcaseNotFound   = errors.New("showcase not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrRatingNotFound     = errors.New("rating not found")
	ErrInvalidTitle       = errors.New("title must not be blank")
	ErrInvalidContent     = errors.New("content must not be empty")
	ErrInvalidRating      = errors.New("invalid rating")
	ErrInvalidTag         = errors.New("invalid tag name")
	// ErrLessonMedia 图片抓取/内联失败，对外只暴露统一提示
	ErrLessonMedia = errors.New("could not process lesson media")
)
