package progression

import "time"

// QuestState 任务状态
type QuestState string

const (
	QuestIncomplete          QuestState = "incomplete"
	QuestCompleted           QuestState = "completed"
	QuestCompletedRepeatable QuestState = "completed_repeatable"
)

// Quest 用户的单个任务进度
// swagger:model Quest
type Quest struct {
	Name            string `json:"name"`
	Desc            string `json:"desc"`
	CurrentProgress int    `json:"currentProgress"`
	GoalProgress    int    `json:"goalProgress"`
	Reward          int    `json:"reward"`
	RepeatAmount    int    `json:"repeatAmount"`
}

func (q Quest) Completed() bool {
	return q.CurrentProgress >= q.GoalProgress
}

func (q Quest) State() QuestState {
	switch {
	case !q.Completed():
		return QuestIncomplete
	case q.RepeatAmount > 0:
		return QuestCompletedRepeatable
	default:
		return QuestCompleted
	}
}

// QuestMap 以任务名为键
type QuestMap map[string]Quest

// Lookup 未找到时返回 false
func (m QuestMap) Lookup(name string) (Quest, bool) {
	q, ok := m[name]
	return q, ok
}

// Update 对已存在的任务执行修改，任务不存在时不做任何事并返回 false
func (m QuestMap) Update(name string, fn func(q *Quest)) bool {
	q, ok := m[name]
	if !ok {
		return false
	}
	fn(&q)
	m[name] = q
	return true
}

func (m QuestMap) Clone() QuestMap {
	out := make(QuestMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Account 用户成长账户：经验、等级、登录连续天数与任务
type Account struct {
	ExperiencePoints int
	Level            int
	Quests           QuestMap
	LoginStreak      int
	LastLoginDate    time.Time
	LoginDays        []time.Time
}

func (a *Account) Clone() *Account {
	out := *a
	out.Quests = a.Quests.Clone()
	if a.LoginDays != nil {
		out.LoginDays = make([]time.Time, len(a.LoginDays))
		copy(out.LoginDays, a.LoginDays)
	}
	return &out
}
