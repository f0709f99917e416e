package repository

import (
	"context"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/progression"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressionRepository 持久化用户成长账户（经验、等级、登录与任务）
type ProgressionRepository struct {
	DB *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) *ProgressionRepository {
	return &ProgressionRepository{DB: db}
}

func (r *ProgressionRepository) Load(ctx context.Context, userID uint) (*progression.Account, error) {
	return r.load(r.DB.WithContext(ctx), userID, false)
}

// Save 整体替换账户状态：用户字段覆盖，任务表按名称 upsert 并删除多余任务
func (r *ProgressionRepository) Save(ctx context.Context, userID uint, acc *progression.Account) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.save(tx, userID, acc)
	})
}

// Update 在一个事务内完成 读取 -> fn 修改 -> 写回；非 sqlite 方言对用户行加 FOR UPDATE 锁
func (r *ProgressionRepository) Update(ctx context.Context, userID uint, fn func(acc *progression.Account) error) (*progression.Account, error) {
	var result *progression.Account
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := r.load(tx, userID, true)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		if err := r.save(tx, userID, acc); err != nil {
			return err
		}
		result = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ProgressionRepository) load(tx *gorm.DB, userID uint, forUpdate bool) (*progression.Account, error) {
	q := tx
	if forUpdate && tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var user model.User
	if err := q.First(&user, userID).Error; err != nil {
		return nil, err
	}

	var quests []model.UserQuest
	if err := tx.Where("user_id = ?", userID).Find(&quests).Error; err != nil {
		return nil, err
	}
	user.Quests = quests
	return ToAccount(&user), nil
}

func (r *ProgressionRepository) save(tx *gorm.DB, userID uint, acc *progression.Account) error {
	loginDays := acc.LoginDays
	if loginDays == nil {
		loginDays = []time.Time{}
	}
	var lastLogin *time.Time
	if !acc.LastLoginDate.IsZero() {
		t := acc.LastLoginDate
		lastLogin = &t
	}

	err := tx.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"experience_points": acc.ExperiencePoints,
		"level":             acc.Level,
		"login_streak":      acc.LoginStreak,
		"last_login_date":   lastLogin,
		"login_days":        datatypes.JSONSlice[time.Time](loginDays),
	}).Error
	if err != nil {
		return err
	}

	names := make([]string, 0, len(acc.Quests))
	for name := range acc.Quests {
		names = append(names, name)
	}
	// 固定顺序写入，避免并发事务间的死锁
	sort.Strings(names)

	if len(names) == 0 {
		return tx.Where("user_id = ?", userID).Delete(&model.UserQuest{}).Error
	}

	rows := make([]model.UserQuest, 0, len(names))
	for _, name := range names {
		q := acc.Quests[name]
		rows = append(rows, model.UserQuest{
			UserID:          userID,
			Name:            q.Name,
			Desc:            q.Desc,
			CurrentProgress: q.CurrentProgress,
			GoalProgress:    q.GoalProgress,
			Reward:          q.Reward,
			RepeatAmount:    q.RepeatAmount,
		})
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "current_progress", "goal_progress", "reward", "repeat_amount", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return err
	}

	return tx.Where("user_id = ? AND name NOT IN ?", userID, names).Delete(&model.UserQuest{}).Error
}

// ToAccount 将持久化模型转换为成长账户
func ToAccount(user *model.User) *progression.Account {
	acc := &progression.Account{
		ExperiencePoints: user.ExperiencePoints,
		Level:            user.Level,
		Quests:           make(progression.QuestMap, len(user.Quests)),
		LoginStreak:      user.LoginStreak,
	}
	if user.LastLoginDate != nil {
		acc.LastLoginDate = *user.LastLoginDate
	}
	if len(user.LoginDays) > 0 {
		acc.LoginDays = append([]time.Time(nil), user.LoginDays...)
	}
	for _, q := range user.Quests {
		acc.Quests[q.Name] = progression.Quest{
			Name:            q.Name,
			Desc:            q.Desc,
			CurrentProgress: q.CurrentProgress,
			GoalProgress:    q.GoalProgress,
			Reward:          q.Reward,
			RepeatAmount:    q.RepeatAmount,
		}
	}
	return acc
}

// ApplyAccount 将账户状态写入用户模型（注册时使用）
func ApplyAccount(user *model.User, acc *progression.Account) {
	user.ExperiencePoints = acc.ExperiencePoints
	user.Level = acc.Level
	user.LoginStreak = acc.LoginStreak
	if !acc.LastLoginDate.IsZero() {
		t := acc.LastLoginDate
		user.LastLoginDate = &t
	}
	user.LoginDays = datatypes.JSONSlice[time.Time](append([]time.Time{}, acc.LoginDays...))

	names := make([]string, 0, len(acc.Quests))
	for name := range acc.Quests {
		names = append(names, name)
	}
	sort.Strings(names)
	user.Quests = make([]model.UserQuest, 0, len(names))
	for _, name := range names {
		q := acc.Quests[name]
		user.Quests = append(user.Quests, model.UserQuest{
			Name:            q.Name,
			Desc:            q.Desc,
			CurrentProgress: q.CurrentProgress,
			GoalProgress:    q.GoalProgress,
			Reward:          q.Reward,
			RepeatAmount:    q.RepeatAmount,
		})
	}
}
