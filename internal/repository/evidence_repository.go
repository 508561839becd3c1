package repository

import (
	"time"

	"vendor_vet_backend/internal/model"

	"gorm.io/gorm"
)

type EvidenceRepository struct {
	DB *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{DB: db}
}

func (r *EvidenceRepository) Create(sub *model.EvidenceSubmission) error {
	return r.DB.Create(sub).Error
}

func (r *EvidenceRepository) Update(sub *model.EvidenceSubmission) error {
	return r.DB.Save(sub).Error
}

func (r *EvidenceRepository) FindByID(id string) (*model.EvidenceSubmission, error) {
	var sub model.EvidenceSubmission
	err := r.DB.Where("id = ?", id).First(&sub).Error
	return &sub, err
}

// FindLatest 同一 (会话, 题号, 要求序号) 允许多次提交，取最近一次
func (r *EvidenceRepository) FindLatest(sessionID string, questionNumber, requirementIndex int) (*model.EvidenceSubmission, error) {
	var sub model.EvidenceSubmission
	err := r.DB.Where("session_id = ? AND question_number = ? AND requirement_index = ?",
		sessionID, questionNumber, requirementIndex).
		Order("created_at desc").First(&sub).Error
	return &sub, err
}

func (r *EvidenceRepository) ListBySession(sessionID string) ([]model.EvidenceSubmission, error) {
	var subs []model.EvidenceSubmission
	err := r.DB.Where("session_id = ?", sessionID).
		Order("question_number asc, requirement_index asc, created_at asc").
		Find(&subs).Error
	return subs, err
}

// ListStalePending 长时间停留在 pending 的提交，后台巡检用
func (r *EvidenceRepository) ListStalePending(olderThan time.Duration) ([]model.EvidenceSubmission, error) {
	var subs []model.EvidenceSubmission
	cutoff := time.Now().Add(-olderThan)
	err := r.DB.Where("review_outcome = ? AND updated_at < ?", model.ReviewPending, cutoff).
		Find(&subs).Error
	return subs, err
}
