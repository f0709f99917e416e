package service

import (
	"context"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/logger"
	"lesson_quest_backend/pkg/monitoring"
	"lesson_quest_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// QuestEvent 一次用户行为对应的任务进度
type QuestEvent struct {
	Quest  string
	Amount int
}

func Progress(quest string) QuestEvent {
	return QuestEvent{Quest: quest, Amount: 1}
}

// QuestView 任务及其状态
type QuestView struct {
	progression.Quest
	State progression.QuestState `json:"state"`
}

// ProgressionView 用户成长信息
type ProgressionView struct {
	ExperiencePoints int         `json:"experiencePoints"`
	Level            int         `json:"level"`
	PointsToLevel    int         `json:"pointsToLevel"`
	NextLevelXP      int         `json:"nextLevelXP"`
	LoginStreak      int         `json:"loginStreak"`
	LastLoginDate    *time.Time  `json:"lastLoginDate"`
	LoginDays        []string    `json:"loginDays"`
	Quests           []QuestView `json:"quests"`
}

type LeaderboardEntry struct {
	UserID           uint   `json:"userId"`
	Name             string `json:"name"`
	ExperiencePoints int    `json:"experiencePoints"`
	Level            int    `json:"level"`
}

type ProgressionService struct {
	Repo     *repository.ProgressionRepository
	UserRepo *repository.UserRepository
	Catalog  *progression.Catalog
	Engine   *progression.Engine
	Locker   AccountLocker
	Now      func() time.Time
}

func NewProgressionService(repo *repository.ProgressionRepository, userRepo *repository.UserRepository, catalog *progression.Catalog, engine *progression.Engine, locker AccountLocker) *ProgressionService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &ProgressionService{
		Repo:     repo,
		UserRepo: userRepo,
		Catalog:  catalog,
		Engine:   engine,
		Locker:   locker,
		Now:      time.Now,
	}
}

// NewAccount 注册时的初始账户
func (s *ProgressionService) NewAccount() *progression.Account {
	return s.Engine.NewAccount(s.Catalog)
}

// update 加账户锁后在事务内修改，缺失的目录任务先补齐
func (s *ProgressionService) update(ctx context.Context, userID uint, fn func(acc *progression.Account)) error {
	unlock, err := s.Locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.Repo.Update(ctx, userID, func(acc *progression.Account) error {
		s.Catalog.Backfill(acc.Quests)
		fn(acc)
		return nil
	})
	return err
}

// Record 一次行为的多个任务事件在同一次原子更新中生效
func (s *ProgressionService) Record(ctx context.Context, userID uint, events ...QuestEvent) ([]progression.Outcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "progression.Record")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("events", len(events)))

	var outcomes []progression.Outcome
	err := s.update(ctx, userID, func(acc *progression.Account) {
		outcomes = make([]progression.Outcome, 0, len(events))
		for _, e := range events {
			outcomes = append(outcomes, s.Engine.RecordProgress(acc, e.Quest, e.Amount))
		}
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.observe(userID, outcomes...)
	return outcomes, nil
}

// Trigger 用于业务动作之后的任务奖励，失败只记录日志，不影响主流程
func (s *ProgressionService) Trigger(ctx context.Context, userID uint, events ...QuestEvent) []progression.Outcome {
	outcomes, err := s.Record(ctx, userID, events...)
	if err != nil {
		logger.Log.Error("Failed to record quest progress",
			zap.Uint("userID", userID),
			zap.Any("events", events),
			zap.Error(err))
		return nil
	}
	return outcomes
}

// RecordLogin 每日首次登录更新连续天数并推进每日登录任务
func (s *ProgressionService) RecordLogin(ctx context.Context, userID uint) (progression.LoginOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "progression.RecordLogin")
	defer span.End()

	var out progression.LoginOutcome
	err := s.update(ctx, userID, func(acc *progression.Account) {
		out = s.Engine.RecordLogin(acc, s.Now())
	})
	if err != nil {
		span.RecordError(err)
		return progression.LoginOutcome{}, err
	}
	s.observe(userID, out.Quest)
	return out, nil
}

func (s *ProgressionService) observe(userID uint, outcomes ...progression.Outcome) {
	for _, o := range outcomes {
		if !o.Completed {
			continue
		}
		monitoring.QuestCompletions.WithLabelValues(o.Quest).Inc()
		monitoring.ExperienceAwarded.Add(float64(o.Reward))
		logger.Log.Info("Quest completed",
			zap.Uint("userID", userID),
			zap.String("quest", o.Quest),
			zap.Int("reward", o.Reward))
	}
}

// View 读取成长信息；目录新增的任务会在此时写入账户
func (s *ProgressionService) View(ctx context.Context, userID uint) (*ProgressionView, error) {
	acc, err := s.Repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Catalog.Backfill(acc.Quests.Clone()) {
		if err := s.update(ctx, userID, func(*progression.Account) {}); err != nil {
			return nil, err
		}
		if acc, err = s.Repo.Load(ctx, userID); err != nil {
			return nil, err
		}
	}
	return s.view(acc), nil
}

func (s *ProgressionService) view(acc *progression.Account) *ProgressionView {
	v := &ProgressionView{
		ExperiencePoints: acc.ExperiencePoints,
		Level:            acc.Level,
		PointsToLevel:    s.Engine.PointsToLevel(),
		NextLevelXP:      s.Engine.NextLevelXP(acc.Level),
		LoginStreak:      acc.LoginStreak,
		LoginDays:        make([]string, 0, len(acc.LoginDays)),
	}
	if !acc.LastLoginDate.IsZero() {
		t := acc.LastLoginDate
		v.LastLoginDate = &t
	}
	for _, d := range acc.LoginDays {
		v.LoginDays = append(v.LoginDays, d.Format(util.DateFormat))
	}
	for _, q := range s.Catalog.Ordered(acc.Quests) {
		v.Quests = append(v.Quests, QuestView{Quest: q, State: q.State()})
	}
	return v
}

func (s *ProgressionService) Templates() []progression.QuestTemplate {
	return s.Catalog.Templates()
}

func (s *ProgressionService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	users, err := s.UserRepo.FindTopByXP(limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, LeaderboardEntry{
			UserID:           u.ID,
			Name:             u.Name,
			ExperiencePoints: u.ExperiencePoints,
			Level:            u.Level,
		})
	}
	return entries, nil
}
