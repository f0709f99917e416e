package progression

import "time"

const (
	DefaultPointsToLevel = 200
	// MaxLoginDays 保留的登录日期数量
	MaxLoginDays = 365
)

// Outcome 一次进度记录的结果
type Outcome struct {
	Quest     string `json:"quest"`
	Applied   bool   `json:"applied"`
	Completed bool   `json:"completed"`
	Reward    int    `json:"reward"`
}

// LoginOutcome 一次登录记录的结果
type LoginOutcome struct {
	FirstLoginToday bool    `json:"firstLoginToday"`
	LoginStreak     int     `json:"loginStreak"`
	Quest           Outcome `json:"quest"`
}

// Engine 任务进度状态机
type Engine struct {
	pointsToLevel int
}

func NewEngine(pointsToLevel int) *Engine {
	if pointsToLevel <= 0 {
		pointsToLevel = DefaultPointsToLevel
	}
	return &Engine{pointsToLevel: pointsToLevel}
}

func (e *Engine) PointsToLevel() int {
	return e.pointsToLevel
}

// LevelFor level = floor(xp / pointsToLevel) + 1
func (e *Engine) LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/e.pointsToLevel + 1
}

// NextLevelXP 升到下一级所需的总经验
func (e *Engine) NextLevelXP(level int) int {
	return level * e.pointsToLevel
}

// NewAccount 注册时创建账户，所有目录任务处于初始状态
func (e *Engine) NewAccount(catalog *Catalog) *Account {
	return &Account{
		ExperiencePoints: 0,
		Level:            e.LevelFor(0),
		Quests:           catalog.Seed(),
	}
}

// RecordProgress 为任务增加进度；未知任务与已完成任务均为空操作
func (e *Engine) RecordProgress(acc *Account, questName string, amount int) Outcome {
	out := Outcome{Quest: questName}
	if amount <= 0 {
		return out
	}

	quest, ok := acc.Quests.Lookup(questName)
	if !ok || quest.Completed() {
		return out
	}

	acc.Quests.Update(questName, func(q *Quest) {
		q.CurrentProgress += amount
		if q.Completed() {
			out.Completed = true
			out.Reward = q.Reward
			if q.RepeatAmount > 0 {
				q.GoalProgress += q.RepeatAmount
			}
		}
	})
	out.Applied = true

	if out.Completed {
		acc.ExperiencePoints += out.Reward
	}
	acc.Level = e.LevelFor(acc.ExperiencePoints)
	return out
}

// RecordLogin 记录每日登录：同一天重复登录不计；隔天登录连续天数加一，否则重置为 1
func (e *Engine) RecordLogin(acc *Account, now time.Time) LoginOutcome {
	today := startOfDay(now)
	if !acc.LastLoginDate.IsZero() && startOfDay(acc.LastLoginDate.In(now.Location())).Equal(today) {
		return LoginOutcome{LoginStreak: acc.LoginStreak, Quest: Outcome{Quest: QuestDailyLoginRepeating}}
	}

	if !acc.LastLoginDate.IsZero() && startOfDay(acc.LastLoginDate.In(now.Location())).Equal(today.AddDate(0, 0, -1)) {
		acc.LoginStreak++
	} else {
		acc.LoginStreak = 1
	}
	acc.LastLoginDate = now
	acc.LoginDays = append(acc.LoginDays, today)
	if len(acc.LoginDays) > MaxLoginDays {
		acc.LoginDays = acc.LoginDays[len(acc.LoginDays)-MaxLoginDays:]
	}

	return LoginOutcome{
		FirstLoginToday: true,
		LoginStreak:     acc.LoginStreak,
		Quest:           e.RecordProgress(acc, QuestDailyLoginRepeating, 1),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
