package repository

import (
	"lesson_quest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Create(comment *model.LessonComment) error {
	if err := r.DB.Create(comment).Error; err != nil {
		return err
	}
	return r.DB.Preload("Author").First(comment, comment.ID).Error
}

func (r *CommentRepository) FindByID(id uint) (*model.LessonComment, error) {
	var comment model.LessonComment
	err := r.DB.Preload("Author").First(&comment, id).Error
	return &comment, err
}

// FindByLessonID 按创建时间倒序
func (r *CommentRepository) FindByLessonID(lessonID string) ([]model.LessonComment, error) {
	var comments []model.LessonComment
	err := r.DB.Preload("Author").Where("lesson_id = ?", lessonID).Order("created_at DESC").Order("id DESC").Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) UpdateContent(id uint, content string) error {
	return r.DB.Model(&model.LessonComment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *CommentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.LessonComment{}, id).Error
}

type RatingRepository struct {
	DB *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{DB: db}
}

// CategoryAverage 某维度的平均分
type CategoryAverage struct {
	Category model.RatingCategory `json:"category"`
	Average  float64              `json:"average"`
	Count    int64                `json:"count"`
}

// Upsert 同一用户对同一课程同一维度重复评分时覆盖分数，返回是否为首次评分
func (r *RatingRepository) Upsert(rating *model.Rating) (bool, error) {
	created := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&model.Rating{}).
			Where("user_id = ? AND lesson_id = ?", rating.UserID, rating.LessonID).
			Count(&count).Error; err != nil {
			return err
		}
		created = count == 0

		// 撤销过的评分在重新评分时恢复
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at", "deleted_at"}),
		}).Create(rating).Error
	})
	return created, err
}

// Delete 撤销评分，category 为空时撤销该用户对课程的全部评分，返回删除条数
func (r *RatingRepository) Delete(userID uint, lessonID string, category model.RatingCategory) (int64, error) {
	q := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	res := q.Delete(&model.Rating{})
	return res.RowsAffected, res.Error
}

func (r *RatingRepository) FindByLessonID(lessonID string) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.DB.Where("lesson_id = ?", lessonID).Order("id ASC").Find(&ratings).Error
	return ratings, err
}

func (r *RatingRepository) FindByUserAndLesson(userID uint, lessonID string) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).Order("category ASC").Find(&ratings).Error
	return ratings, err
}

func (r *RatingRepository) Averages(lessonID string) ([]CategoryAverage, error) {
	var averages []CategoryAverage
	err := r.DB.Model(&model.Rating{}).
		Select("category, AVG(score) AS average, COUNT(*) AS count").
		Where("lesson_id = ?", lessonID).
		Group("category").
		Order("category ASC").
		Scan(&averages).Error
	return averages, err
}

type TagRepository struct {
	DB *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

// Add 重复添加同名标签不报错
func (r *TagRepository) Add(lessonID, name string) error {
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.LessonTag{LessonID: lessonID, Name: name}).Error
}

func (r *TagRepository) Remove(lessonID, name string) error {
	return r.DB.Where("lesson_id = ? AND name = ?", lessonID, name).Delete(&model.LessonTag{}).Error
}

func (r *TagRepository) FindByLessonID(lessonID string) ([]string, error) {
	var names []string
	err := r.DB.Model(&model.LessonTag{}).Where("lesson_id = ?", lessonID).Order("name ASC").Pluck("name", &names).Error
	return names, err
}

func (r *TagRepository) FindLessonIDsByName(name string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.LessonTag{}).Where("name = ?", name).Distinct().Pluck("lesson_id", &ids).Error
	return ids, err
}
