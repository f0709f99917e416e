package service

import (
	"context"
	"errors"
	"lesson_quest_backend/internal/content"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// LessonInput 创建/更新课程或作品的请求内容，Content 为带分隔符的原始文本
type LessonInput struct {
	Title   string `json:"title" binding:"required,notblank,max=200"`
	Content string `json:"content" binding:"required"`
}

// Actor 发起操作的用户
type Actor struct {
	UserID uint
	Admin  bool
}

// canModify 作者或管理员
func (a Actor) canModify(ownerID uint) bool {
	return a.Admin || a.UserID == ownerID
}

type LessonService struct {
	LessonRepo  *repository.LessonRepository
	TagRepo     *repository.TagRepository
	Content     *ContentService
	Progression *ProgressionService
}

func NewLessonService(lessonRepo *repository.LessonRepository, tagRepo *repository.TagRepository, contentService *ContentService, progressionService *ProgressionService) *LessonService {
	return &LessonService{
		LessonRepo:  lessonRepo,
		TagRepo:     tagRepo,
		Content:     contentService,
		Progression: progressionService,
	}
}

func (s *LessonService) Preview(raw string) (*Preview, error) {
	return s.Content.Preview(raw)
}

func (s *LessonService) Create(ctx context.Context, userID uint, input LessonInput) (*model.Lesson, error) {
	chunks, err := s.Content.Prepare(ctx, input.Title, input.Content)
	if err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		UserID:       userID,
		Title:        strings.TrimSpace(input.Title),
		Content:      chunks,
		OriginalText: input.Content,
	}
	if err := s.LessonRepo.Create(lesson); err != nil {
		return nil, err
	}

	s.Progression.Trigger(ctx, userID,
		Progress(progression.QuestCreateLesson),
		Progress(progression.QuestCreateLessonsRepeating))
	return lesson, nil
}

func (s *LessonService) Get(id string) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, actor Actor, id string, input LessonInput) (*model.Lesson, error) {
	lesson, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(lesson.UserID) {
		return nil, util.ErrPermissionDenied
	}

	chunks, err := s.Content.Prepare(ctx, input.Title, input.Content)
	if err != nil {
		return nil, err
	}
	lesson.Title = strings.TrimSpace(input.Title)
	lesson.Content = chunks
	lesson.OriginalText = input.Content
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Delete 同时删除评论、评分、标签和作品
func (s *LessonService) Delete(actor Actor, id string) error {
	lesson, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.canModify(lesson.UserID) {
		return util.ErrPermissionDenied
	}
	return s.LessonRepo.Delete(id)
}

// List userID 为 0 时返回全部课程
func (s *LessonService) List(userID uint) ([]model.Lesson, error) {
	if userID == 0 {
		return s.LessonRepo.FindAll()
	}
	return s.LessonRepo.FindByUserID(userID)
}

func (s *LessonService) Recent() ([]model.Lesson, error) {
	return s.LessonRepo.FindRecent(util.RecentLessonLimit)
}

// Search 标题包含 name，不区分大小写
func (s *LessonService) Search(name string) ([]model.Lesson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []model.Lesson{}, nil
	}
	return s.LessonRepo.SearchByTitle(name)
}

// ByTag 带有指定标签的课程
func (s *LessonService) ByTag(tag string) ([]model.Lesson, error) {
	ids, err := s.TagRepo.FindLessonIDsByName(util.NormalizeTag(tag))
	if err != nil {
		return nil, err
	}
	return s.LessonRepo.FindByIDs(ids)
}

func (s *LessonService) Render(ctx context.Context, id string) ([]string, error) {
	lesson, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Content.Render(ctx, "lesson", lesson.ID, lesson.UpdatedAt, []content.Chunk(lesson.Content))
}
