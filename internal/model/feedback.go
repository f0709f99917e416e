package model

// RatingCategory 评分维度
type RatingCategory string

const (
	RatingClarity  RatingCategory = "Clarity"
	RatingAccuracy RatingCategory = "Accuracy"
	RatingEngaging RatingCategory = "Engaging"
)

var RatingCategories = []RatingCategory{RatingClarity, RatingAccuracy, RatingEngaging}

func (c RatingCategory) Valid() bool {
	for _, v := range RatingCategories {
		if c == v {
			return true
		}
	}
	return false
}

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// swagger:model LessonComment
type LessonComment struct {
	BaseModel
	LessonID string `gorm:"type:varchar(36);not null;index" json:"lessonId"`
	UserID   uint   `gorm:"not null;index" json:"userId"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Author   *User  `gorm:"foreignKey:UserID" json:"author,omitempty"`
}

func (LessonComment) TableName() string {
	return "lesson_comments"
}

// Rating 每个用户对每节课的每个维度只有一条
// swagger:model Rating
type Rating struct {
	BaseModel
	UserID   uint           `gorm:"not null;uniqueIndex:idx_rating_once" json:"userId"`
	LessonID string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_rating_once;index" json:"lessonId"`
	Category RatingCategory `gorm:"size:20;not null;uniqueIndex:idx_rating_once" json:"category"`
	Score    int            `gorm:"not null" json:"score"`
}

func (Rating) TableName() string {
	return "ratings"
}

// swagger:model LessonTag
type LessonTag struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_lesson_tag" json:"lessonId"`
	Name     string `gorm:"size:50;not null;uniqueIndex:idx_lesson_tag;index" json:"name"`
}

func (LessonTag) TableName() string {
	return "lesson_tags"
}

// AllModels 需要自动迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserQuest{},
		&Lesson{},
		&Showcase{},
		&LessonComment{},
		&Rating{},
		&LessonTag{},
	}
}
