package service

import (
	"context"
	"errors"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/util"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

func requireLesson(repo *repository.LessonRepository, lessonID string) error {
	exists, err := repo.Exists(lessonID)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrLessonNotFound
	}
	return nil
}

type CommentService struct {
	CommentRepo *repository.CommentRepository
	LessonRepo  *repository.LessonRepository
	Progression *ProgressionService
}

func NewCommentService(commentRepo *repository.CommentRepository, lessonRepo *repository.LessonRepository, progressionService *ProgressionService) *CommentService {
	return &CommentService{
		CommentRepo: commentRepo,
		LessonRepo:  lessonRepo,
		Progression: progressionService,
	}
}

func (s *CommentService) Create(ctx context.Context, userID uint, lessonID, text string) (*model.LessonComment, error) {
	if !util.IsNotBlank(text) {
		return nil, util.ErrInvalidContent
	}
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return nil, err
	}

	comment := &model.LessonComment{
		LessonID: lessonID,
		UserID:   userID,
		Content:  strings.TrimSpace(text),
	}
	if err := s.CommentRepo.Create(comment); err != nil {
		return nil, err
	}

	s.Progression.Trigger(ctx, userID, Progress(progression.QuestCommentOnLesson))
	return comment, nil
}

func (s *CommentService) ListByLesson(lessonID string) ([]model.LessonComment, error) {
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return nil, err
	}
	return s.CommentRepo.FindByLessonID(lessonID)
}

func (s *CommentService) owned(actor Actor, id uint) (*model.LessonComment, error) {
	comment, err := s.CommentRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.canModify(comment.UserID) {
		return nil, util.ErrPermissionDenied
	}
	return comment, nil
}

func (s *CommentService) Update(actor Actor, id uint, text string) (*model.LessonComment, error) {
	if !util.IsNotBlank(text) {
		return nil, util.ErrInvalidContent
	}
	comment, err := s.owned(actor, id)
	if err != nil {
		return nil, err
	}
	comment.Content = strings.TrimSpace(text)
	if err := s.CommentRepo.UpdateContent(id, comment.Content); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(actor Actor, id uint) error {
	if _, err := s.owned(actor, id); err != nil {
		return err
	}
	return s.CommentRepo.Delete(id)
}

// RatingInput 单个维度的评分
type RatingInput struct {
	Category model.RatingCategory `json:"category" binding:"required"`
	Score    int                  `json:"score" binding:"required"`
}

// RatingSummary 课程各维度均分及当前用户的评分
type RatingSummary struct {
	Averages []repository.CategoryAverage `json:"averages"`
	Mine     []model.Rating               `json:"mine,omitempty"`
}

type RatingService struct {
	RatingRepo  *repository.RatingRepository
	LessonRepo  *repository.LessonRepository
	Progression *ProgressionService
}

func NewRatingService(ratingRepo *repository.RatingRepository, lessonRepo *repository.LessonRepository, progressionService *ProgressionService) *RatingService {
	return &RatingService{
		RatingRepo:  ratingRepo,
		LessonRepo:  lessonRepo,
		Progression: progressionService,
	}
}

// Rate 重复评分覆盖原分数，首次评价该课程时推进评分任务
func (s *RatingService) Rate(ctx context.Context, userID uint, lessonID string, input RatingInput) (*model.Rating, error) {
	if !input.Category.Valid() || input.Score < model.MinRatingScore || input.Score > model.MaxRatingScore {
		return nil, util.ErrInvalidRating
	}
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return nil, err
	}

	rating := &model.Rating{
		UserID:   userID,
		LessonID: lessonID,
		Category: input.Category,
		Score:    input.Score,
	}
	created, err := s.RatingRepo.Upsert(rating)
	if err != nil {
		return nil, err
	}
	if created {
		s.Progression.Trigger(ctx, userID, Progress(progression.QuestRateLesson))
	}
	return rating, nil
}

// Delete 撤销评分；再次评分不会重复推进评分任务
func (s *RatingService) Delete(userID uint, lessonID string, category model.RatingCategory) error {
	if category != "" && !category.Valid() {
		return util.ErrInvalidRating
	}
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return err
	}
	removed, err := s.RatingRepo.Delete(userID, lessonID, category)
	if err != nil {
		return err
	}
	if removed == 0 {
		return util.ErrRatingNotFound
	}
	return nil
}

// Summary userID 为 0 时不返回个人评分
func (s *RatingService) Summary(userID uint, lessonID string) (*RatingSummary, error) {
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return nil, err
	}
	averages, err := s.RatingRepo.Averages(lessonID)
	if err != nil {
		return nil, err
	}
	summary := &RatingSummary{Averages: averages}
	if userID != 0 {
		if summary.Mine, err = s.RatingRepo.FindByUserAndLesson(userID, lessonID); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

type TagService struct {
	TagRepo    *repository.TagRepository
	LessonRepo *repository.LessonRepository
}

func NewTagService(tagRepo *repository.TagRepository, lessonRepo *repository.LessonRepository) *TagService {
	return &TagService{TagRepo: tagRepo, LessonRepo: lessonRepo}
}

func normalizeTag(name string) (string, error) {
	name = util.NormalizeTag(name)
	if name == "" || utf8.RuneCountInString(name) > util.MaxTagLength {
		return "", util.ErrInvalidTag
	}
	return name, nil
}

// Add 仅作者或管理员可以给课程加标签
func (s *TagService) Add(actor Actor, lessonID, name string) ([]string, error) {
	tag, err := normalizeTag(name)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, lessonID); err != nil {
		return nil, err
	}
	if err := s.TagRepo.Add(lessonID, tag); err != nil {
		return nil, err
	}
	return s.TagRepo.FindByLessonID(lessonID)
}

func (s *TagService) Remove(actor Actor, lessonID, name string) ([]string, error) {
	tag, err := normalizeTag(name)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, lessonID); err != nil {
		return nil, err
	}
	if err := s.TagRepo.Remove(lessonID, tag); err != nil {
		return nil, err
	}
	return s.TagRepo.FindByLessonID(lessonID)
}

func (s *TagService) ListByLesson(lessonID string) ([]string, error) {
	if err := requireLesson(s.LessonRepo, lessonID); err != nil {
		return nil, err
	}
	return s.TagRepo.FindByLessonID(lessonID)
}

func (s *TagService) authorize(actor Actor, lessonID string) error {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrLessonNotFound
	}
	if err != nil {
		return err
	}
	if !actor.canModify(lesson.UserID) {
		return util.ErrPermissionDenied
	}
	return nil
}
