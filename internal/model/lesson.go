package model

import (
	"lesson_quest_backend/internal/content"

	"gorm.io/datatypes"
)

// swagger:model Lesson
type Lesson struct {
	UUIDBase
	UserID       uint                                `gorm:"not null;index" json:"userId"`
	Title        string                              `gorm:"size:200;not null;index" json:"title"`
	Content      datatypes.JSONSlice[content.Chunk] `json:"content"`
	OriginalText string                              `gorm:"type:text" json:"originalText"`
	Author       *User                               `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Showcase
type Showcase struct {
	UUIDBase
	UserID       uint                                `gorm:"not null;index" json:"userId"`
	LessonID     string                              `gorm:"type:varchar(36);not null;index" json:"lessonId"`
	Title        string                              `gorm:"size:200;not null" json:"title"`
	Content      datatypes.JSONSlice[content.Chunk] `json:"content"`
	OriginalText string                              `gorm:"type:text" json:"originalText"`
	Author       *User                               `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

func (Showcase) TableName() string {
	return "showcases"
}
