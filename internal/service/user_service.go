package service

import (
	"errors"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionStatusReader 按供应商批量读取访谈状态
type SessionStatusReader interface {
	StatusByRespondents(respondentIDs []uint) (map[uint]model.SessionStatus, error)
}

// UserService 管理员侧的账号管理
type UserService struct {
	UserRepo *repository.UserRepository
	Sessions SessionStatusReader
}

func NewUserService(userRepo *repository.UserRepository, sessions SessionStatusReader) *UserService {
	return &UserService{UserRepo: userRepo, Sessions: sessions}
}

// UserView 账号及其访谈进度，供应商未开始访谈时为 not_started
type UserView struct {
	model.User
	InterviewStatus string `json:"interviewStatus,omitempty"`
}

// GetUsers 分页列出账号，可按角色过滤、按姓名/邮箱/公司模糊搜索，
// 供应商账号附带访谈状态
func (s *UserService) GetUsers(page, limit int, role, search string) ([]UserView, int64, error) {
	users, total, err := s.UserRepo.List(page, limit, role, search)
	if err != nil {
		return nil, 0, err
	}

	respondentIDs := make([]uint, 0, len(users))
	for _, u := range users {
		if u.Role == model.Respondent {
			respondentIDs = append(respondentIDs, u.ID)
		}
	}
	statuses, err := s.Sessions.StatusByRespondents(respondentIDs)
	if err != nil {
		return nil, 0, err
	}

	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = UserView{User: u}
		if u.Role != model.Respondent {
			continue
		}
		if status, ok := statuses[u.ID]; ok {
			views[i].InterviewStatus = string(status)
		} else {
			views[i].InterviewStatus = "not_started"
		}
	}
	return views, total, nil
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ProfilePatch 可更新的资料字段，零值字段不动
type ProfilePatch struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// UpdateProfile 以补丁方式更新资料并返回更新后的账号
func (s *UserService) UpdateProfile(id uint, in ProfilePatch) (*model.User, error) {
	if _, err := s.GetUserByID(id); err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if in.Name != "" {
		patch["name"] = in.Name
	}
	if in.Company != "" {
		patch["company"] = in.Company
	}
	if in.Phone != "" {
		patch["phone"] = in.Phone
	}
	if len(patch) == 0 {
		return s.UserRepo.FindByID(id)
	}
	return s.UserRepo.UpdateProfile(id, patch)
}

// SetRole 管理员调整账号角色
func (s *UserService) SetRole(id uint, role model.UserRole) (*model.User, error) {
	switch role {
	case model.Respondent, model.Auditor, model.Admin:
	default:
		return nil, util.Validation("unknown role")
	}
	if _, err := s.GetUserByID(id); err != nil {
		return nil, err
	}
	return s.UserRepo.UpdateProfile(id, map[string]interface{}{"role": role})
}

// SetDisabled 停用/启用账号
func (s *UserService) SetDisabled(id uint, disabled bool) error {
	if _, err := s.GetUserByID(id); err != nil {
		return err
	}
	return s.UserRepo.SetDisabled(id, disabled)
}

// ChangePassword 本人修改密码，需验证旧密码
func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return util.Validation("password must be at least 8 characters")
	}

	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.Validation("old password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.UserRepo.UpdateProfile(id, map[string]interface{}{"password": string(hashed)})
	return err
}
