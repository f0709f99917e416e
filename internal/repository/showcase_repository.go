package repository

import (
	"lesson_quest_backend/internal/model"

	"gorm.io/gorm"
)

type ShowcaseRepository struct {
	DB *gorm.DB
}

func NewShowcaseRepository(db *gorm.DB) *ShowcaseRepository {
	return &ShowcaseRepository{DB: db}
}

// ShowcaseFilter 零值字段不参与过滤
type ShowcaseFilter struct {
	LessonID string
	UserID   uint
}

func (r *ShowcaseRepository) Create(showcase *model.Showcase) error {
	return r.DB.Create(showcase).Error
}

func (r *ShowcaseRepository) Update(showcase *model.Showcase) error {
	return r.DB.Model(showcase).Select("title", "content", "original_text", "updated_at").Updates(showcase).Error
}

func (r *ShowcaseRepository) FindByID(id string) (*model.Showcase, error) {
	var showcase model.Showcase
	err := r.DB.Preload("Author").Where("id = ?", id).First(&showcase).Error
	return &showcase, err
}

func (r *ShowcaseRepository) Find(filter ShowcaseFilter) ([]model.Showcase, error) {
	var showcases []model.Showcase
	q := r.DB.Preload("Author")
	if filter.LessonID != "" {
		q = q.Where("lesson_id = ?", filter.LessonID)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	err := q.Order("created_at DESC").Find(&showcases).Error
	return showcases, err
}

func (r *ShowcaseRepository) Delete(id string) error {
	return r.DB.Where("id = ?", id).Delete(&model.Showcase{}).Error
}
