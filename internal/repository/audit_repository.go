package repository

import (
	"vendor_vet_backend/internal/model"

	"gorm.io/gorm"
)

type AuditRepository struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

// CreateCorrection 修正记录只追加，永不更新或删除
func (r *AuditRepository) CreateCorrection(c *model.AuditorCorrection) error {
	return r.DB.Create(c).Error
}

func (r *AuditRepository) ListCorrections(respondentID uint) ([]model.AuditorCorrection, error) {
	var cs []model.AuditorCorrection
	query := r.DB.Model(&model.AuditorCorrection{})
	if respondentID > 0 {
		query = query.Where("respondent_id = ?", respondentID)
	}
	err := query.Order("created_at desc").Find(&cs).Error
	return cs, err
}

// AuditAnswerRow 审核员视角的一条作答，携带供应商身份信息
type AuditAnswerRow struct {
	model.InterviewAnswer
	RespondentName  string `gorm:"column:respondent_name" json:"respondentName"`
	RespondentEmail string `gorm:"column:respondent_email" json:"respondentEmail"`
	Company         string `gorm:"column:company" json:"company"`
}

// ListAnswers 跨全部供应商列出作答，search 在姓名/邮箱/公司上模糊匹配
func (r *AuditRepository) ListAnswers(page, limit int, search string) ([]AuditAnswerRow, int64, error) {
	var total int64

	query := r.DB.Table("interview_answers").
		Select("interview_answers.*, users.name as respondent_name, users.email as respondent_email, users.company as company").
		Joins("JOIN users ON users.id = interview_answers.respondent_id").
		Where("interview_answers.deleted_at IS NULL").
		Where("users.deleted_at IS NULL")

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("users.name LIKE ? OR users.email LIKE ? OR users.company LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var rows []AuditAnswerRow
	err := query.Order("interview_answers.created_at desc").
		Offset(offset).Limit(limit).
		Scan(&rows).Error

	return rows, total, err
}
