package repository

import (
	"lesson_quest_backend/internal/model"
	"strings"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Model(lesson).Select("title", "content", "original_text", "updated_at").Updates(lesson).Error
}

func (r *LessonRepository) FindByID(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Preload("Author").Where("id = ?", id).First(&lesson).Error
	return &lesson, err
}

func (r *LessonRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *LessonRepository) FindAll() ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Preload("Author").Order("created_at DESC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindByUserID(userID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Preload("Author").Where("user_id = ?", userID).Order("created_at DESC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindByIDs(ids []string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	if len(ids) == 0 {
		return lessons, nil
	}
	err := r.DB.Preload("Author").Where("id IN ?", ids).Order("created_at DESC").Find(&lessons).Error
	return lessons, err
}

// FindRecent 按修改时间倒序
func (r *LessonRepository) FindRecent(limit int) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Preload("Author").Order("updated_at DESC").Limit(limit).Find(&lessons).Error
	return lessons, err
}

// SearchByTitle 标题模糊搜索，不区分大小写
func (r *LessonRepository) SearchByTitle(name string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(name))) + "%"
	err := r.DB.Preload("Author").
		Where("LOWER(title) LIKE ? ESCAPE '!'", pattern).
		Order("updated_at DESC").
		Find(&lessons).Error
	return lessons, err
}

// Delete 删除课程及其评论、评分、标签和作品
func (r *LessonRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", id).Delete(&model.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", id).Delete(&model.Showcase{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Lesson{}).Error
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
