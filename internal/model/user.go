package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	Member UserRole = "member"
	Admin  UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name             string                         `gorm:"size:100;not null" json:"name"`
	Email            string                         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password         string                         `gorm:"size:100;not null" json:"-"`
	Role             UserRole                       `gorm:"size:20;default:'member'" json:"role"`
	ExperiencePoints int                            `gorm:"default:0" json:"experiencePoints"`
	Level            int                            `gorm:"default:1" json:"level"`
	LoginStreak      int                            `gorm:"default:0" json:"loginStreak"`
	LastLoginDate    *time.Time                     `json:"lastLoginDate"`
	LoginDays        datatypes.JSONSlice[time.Time] `json:"loginDays"`
	Quests           []UserQuest                    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserQuest 用户任务进度，(user_id, name) 唯一
type UserQuest struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_quest" json:"-"`
	Name            string    `gorm:"size:100;not null;uniqueIndex:idx_user_quest" json:"name"`
	Desc            string    `gorm:"column:description;size:255" json:"desc"`
	CurrentProgress int       `gorm:"not null;default:0" json:"currentProgress"`
	GoalProgress    int       `gorm:"not null" json:"goalProgress"`
	Reward          int       `gorm:"not null;default:0" json:"reward"`
	RepeatAmount    int       `gorm:"not null;default:0" json:"repeatAmount"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserQuest) TableName() string {
	return "user_quests"
}
