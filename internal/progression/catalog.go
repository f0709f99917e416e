package progression

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	QuestCompleteShowcase         = "complete-a-showcase"
	QuestCommentOnLesson          = "comment-on-a-lesson"
	QuestRateLesson               = "rate-a-lesson"
	QuestCreateLesson             = "create-a-lesson"
	QuestCreateLessonsRepeating   = "create-lessons-repeating"
	QuestCreateShowcasesRepeating = "create-showcases-repeating"
	QuestDailyLoginRepeating      = "daily-login-repeating"
)

var ErrInvalidCatalog = errors.New("invalid quest catalog")

// QuestTemplate 任务模板，新账户创建时复制其初始值
type QuestTemplate struct {
	Name         string `yaml:"name" json:"name"`
	Desc         string `yaml:"desc" json:"desc"`
	InitialGoal  int    `yaml:"initial_goal" json:"initialGoal"`
	Reward       int    `yaml:"reward" json:"reward"`
	RepeatAmount int    `yaml:"repeat_amount" json:"repeatAmount"`
}

// Catalog 只读的任务目录，构造后不再修改
type Catalog struct {
	templates []QuestTemplate
	index     map[string]int
}

func NewCatalog(templates []QuestTemplate) (*Catalog, error) {
	c := &Catalog{
		templates: make([]QuestTemplate, 0, len(templates)),
		index:     make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: quest without name", ErrInvalidCatalog)
		}
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate quest %q", ErrInvalidCatalog, t.Name)
		}
		if t.InitialGoal <= 0 || t.Reward < 0 || t.RepeatAmount < 0 {
			return nil, fmt.Errorf("%w: quest %q has invalid numbers", ErrInvalidCatalog, t.Name)
		}
		c.index[t.Name] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

func defaultTemplates() []QuestTemplate {
	return []QuestTemplate{
		{Name: QuestCompleteShowcase, Desc: "Showcase your work on a lesson", InitialGoal: 1, Reward: 100},
		{Name: QuestCommentOnLesson, Desc: "Leave a comment on a lesson", InitialGoal: 1, Reward: 50},
		{Name: QuestRateLesson, Desc: "Rate a lesson", InitialGoal: 1, Reward: 50},
		{Name: QuestCreateLesson, Desc: "Create your first lesson", InitialGoal: 1, Reward: 300},
		{Name: QuestCreateLessonsRepeating, Desc: "Create 3 more lessons", InitialGoal: 3, Reward: 250, RepeatAmount: 3},
		{Name: QuestCreateShowcasesRepeating, Desc: "Create 3 more showcases", InitialGoal: 3, Reward: 300, RepeatAmount: 3},
		{Name: QuestDailyLoginRepeating, Desc: "Log in on consecutive days", InitialGoal: 2, Reward: 20, RepeatAmount: 1},
	}
}

// DefaultCatalog 内置任务目录
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultTemplates())
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Quests []QuestTemplate `yaml:"quests"`
}

// LoadCatalog 从 yaml 文件加载任务目录，path 为空时使用内置目录
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(file.Quests) == 0 {
		return nil, fmt.Errorf("%w: no quests in %s", ErrInvalidCatalog, path)
	}
	return NewCatalog(file.Quests)
}

// Templates 返回模板副本，按目录顺序
func (c *Catalog) Templates() []QuestTemplate {
	out := make([]QuestTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c *Catalog) Names() []string {
	names := make([]string, len(c.templates))
	for i, t := range c.templates {
		names[i] = t.Name
	}
	return names
}

// Seed 为新账户生成全部任务的初始状态
func (c *Catalog) Seed() QuestMap {
	quests := make(QuestMap, len(c.templates))
	for _, t := range c.templates {
		quests[t.Name] = t.newQuest()
	}
	return quests
}

// Backfill 为旧账户补齐目录中新增的任务，返回是否有补充
func (c *Catalog) Backfill(quests QuestMap) bool {
	added := false
	for _, t := range c.templates {
		if _, ok := quests[t.Name]; !ok {
			quests[t.Name] = t.newQuest()
			added = true
		}
	}
	return added
}

// Ordered 按目录顺序列出任务，目录外的任务排在最后
func (c *Catalog) Ordered(quests QuestMap) []Quest {
	out := make([]Quest, 0, len(quests))
	for _, t := range c.templates {
		if q, ok := quests[t.Name]; ok {
			out = append(out, q)
		}
	}
	for name, q := range quests {
		if !c.Has(name) {
			out = append(out, q)
		}
	}
	return out
}

func (t QuestTemplate) newQuest() Quest {
	return Quest{
		Name:            t.Name,
		Desc:            t.Desc,
		CurrentProgress: 0,
		GoalProgress:    t.InitialGoal,
		Reward:          t.Reward,
		RepeatAmount:    t.RepeatAmount,
	}
}
