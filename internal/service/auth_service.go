package service

import (
	"context"
	"errors"
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo    *repository.UserRepository
	Progression *ProgressionService
	Cfg         *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, progressionService *ProgressionService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:    userRepo,
		Progression: progressionService,
		Cfg:         cfg,
	}
}

// LoginResult 登录结果，Progress 为当日登录对成长数据的影响
type LoginResult struct {
	Token    string                   `json:"token"`
	User     *model.User              `json:"user"`
	Progress progression.LoginOutcome `json:"progress"`
}

// Register 创建用户并写入全部初始任务
func (s *AuthService) Register(user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	exists, err := s.UserRepo.ExistsByEmail(user.Email)
	if err != nil {
		return err
	}
	if exists {
		return util.ErrEmailRegistered
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	if user.Role == "" {
		user.Role = model.Member
	}
	repository.ApplyAccount(user, s.Progression.NewAccount())
	return s.UserRepo.Create(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Token: token, User: user}
	outcome, err := s.Progression.RecordLogin(ctx, user.ID)
	if err != nil {
		logger.Log.Error("Failed to record daily login", zap.Uint("userID", user.ID), zap.Error(err))
	} else {
		result.Progress = outcome
	}
	return result, nil
}

// ProfileInput 空字段保持不变，修改密码时必须提供当前密码
type ProfileInput struct {
	Name            string `json:"name" binding:"omitempty,notblank,max=100"`
	Password        string `json:"password" binding:"omitempty,min=8"`
	CurrentPassword string `json:"currentPassword"`
}

func (s *AuthService) UpdateProfile(userID uint, input ProfileInput) (*model.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if name := strings.TrimSpace(input.Name); name != "" {
		fields["name"] = name
	}
	if input.Password != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
			return nil, util.ErrPermissionDenied
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		fields["password"] = string(hashedPassword)
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.UserRepo.UpdateProfile(userID, fields); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

// DeleteAccount 删除账户及成长数据
func (s *AuthService) DeleteAccount(userID uint) error {
	err := s.UserRepo.Delete(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrUserNotFound
	}
	if err == nil {
		logger.Log.Info("Account deleted", zap.Uint("userID", userID))
	}
	return err
}

func (s *AuthService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}
