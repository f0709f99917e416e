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

// ShowcaseInput 作品需关联已存在的课程
type ShowcaseInput struct {
	LessonID string `json:"lessonId" binding:"required"`
	LessonInput
}

type ShowcaseService struct {
	ShowcaseRepo *repository.ShowcaseRepository
	LessonRepo   *repository.LessonRepository
	Content      *ContentService
	Progression  *ProgressionService
}

func NewShowcaseService(showcaseRepo *repository.ShowcaseRepository, lessonRepo *repository.LessonRepository, contentService *ContentService, progressionService *ProgressionService) *ShowcaseService {
	return &ShowcaseService{
		ShowcaseRepo: showcaseRepo,
		LessonRepo:   lessonRepo,
		Content:      contentService,
		Progression:  progressionService,
	}
}

func (s *ShowcaseService) Create(ctx context.Context, userID uint, input ShowcaseInput) (*model.Showcase, error) {
	exists, err := s.LessonRepo.Exists(input.LessonID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrLessonNotFound
	}

	chunks, err := s.Content.Prepare(ctx, input.Title, input.Content)
	if err != nil {
		return nil, err
	}

	showcase := &model.Showcase{
		UserID:       userID,
		LessonID:     input.LessonID,
		Title:        strings.TrimSpace(input.Title),
		Content:      chunks,
		OriginalText: input.Content,
	}
	if err := s.ShowcaseRepo.Create(showcase); err != nil {
		return nil, err
	}

	s.Progression.Trigger(ctx, userID,
		Progress(progression.QuestCompleteShowcase),
		Progress(progression.QuestCreateShowcasesRepeating))
	return showcase, nil
}

func (s *ShowcaseService) Get(id string) (*model.Showcase, error) {
	showcase, err := s.ShowcaseRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrShowcaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return showcase, nil
}

// Update 关联的课程不可修改
func (s *ShowcaseService) Update(ctx context.Context, actor Actor, id string, input LessonInput) (*model.Showcase, error) {
	showcase, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.canModify(showcase.UserID) {
		return nil, util.ErrPermissionDenied
	}

	chunks, err := s.Content.Prepare(ctx, input.Title, input.Content)
	if err != nil {
		return nil, err
	}
	showcase.Title = strings.TrimSpace(input.Title)
	showcase.Content = chunks
	showcase.OriginalText = input.Content
	if err := s.ShowcaseRepo.Update(showcase); err != nil {
		return nil, err
	}
	return showcase, nil
}

func (s *ShowcaseService) Delete(actor Actor, id string) error {
	showcase, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.canModify(showcase.UserID) {
		return util.ErrPermissionDenied
	}
	return s.ShowcaseRepo.Delete(id)
}

func (s *ShowcaseService) Find(filter repository.ShowcaseFilter) ([]model.Showcase, error) {
	return s.ShowcaseRepo.Find(filter)
}

func (s *ShowcaseService) Render(ctx context.Context, id string) ([]string, error) {
	showcase, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Content.Render(ctx, "showcase", showcase.ID, showcase.UpdatedAt, []content.Chunk(showcase.Content))
}
