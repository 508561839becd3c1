package repository

import (
	"errors"

	"vendor_vet_backend/internal/model"

	"gorm.io/gorm"
)

// ErrVersionConflict 乐观并发检查失败：会话在读取后被其他请求修改过
var ErrVersionConflict = errors.New("session version conflict")

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// GetOrCreate 每个供应商只有一条会话记录，存在即返回（幂等恢复）
func (r *SessionRepository) GetOrCreate(respondentID uint) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.DB.Where(model.InterviewSession{RespondentID: respondentID}).
		Attrs(model.InterviewSession{Status: model.SessionActive, CurrentRequirement: -1}).
		FirstOrCreate(&s).Error
	return &s, err
}

func (r *SessionRepository) FindByID(id string) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.DB.Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *SessionRepository) FindByRespondent(respondentID uint) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.DB.Where("respondent_id = ?", respondentID).First(&s).Error
	return &s, err
}

// StatusByRespondents 批量查询一组供应商的会话状态，没有会话的不出现在结果里
func (r *SessionRepository) StatusByRespondents(respondentIDs []uint) (map[uint]model.SessionStatus, error) {
	if len(respondentIDs) == 0 {
		return map[uint]model.SessionStatus{}, nil
	}

	var rows []struct {
		RespondentID uint
		Status       model.SessionStatus
	}
	err := r.DB.Model(&model.InterviewSession{}).
		Select("respondent_id", "status").
		Where("respondent_id IN ?", respondentIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	statuses := make(map[uint]model.SessionStatus, len(rows))
	for _, row := range rows {
		statuses[row.RespondentID] = row.Status
	}
	return statuses, nil
}

// commit 带版本检查地落盘会话的全部可变字段。
// WHERE version = 旧值，影响行数为 0 说明并发冲突。
func (r *SessionRepository) commit(tx *gorm.DB, s *model.InterviewSession, prev int64) error {
	res := tx.Model(&model.InterviewSession{}).
		Where("id = ? AND version = ?", s.ID, prev).
		Updates(map[string]interface{}{
			"status":              s.Status,
			"current_question":    s.CurrentQuestion,
			"current_requirement": s.CurrentRequirement,
			"version":             s.Version,
			"score":               s.Score,
			"strengths":           s.Strengths,
			"weaknesses":          s.Weaknesses,
			"summary":             s.Summary,
			"scored_at":           s.ScoredAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *SessionRepository) runVersioned(s *model.InterviewSession, fn func(tx *gorm.DB) error) error {
	prev := s.Version
	s.Version = prev + 1
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := r.commit(tx, s, prev); err != nil {
			return err
		}
		if fn != nil {
			return fn(tx)
		}
		return nil
	})
	if err != nil {
		s.Version = prev
	}
	return err
}

// Update 仅更新会话自身状态
func (r *SessionRepository) Update(s *model.InterviewSession) error {
	return r.runVersioned(s, nil)
}

// UpdateWithAnswer 会话状态与作答记录在同一事务中落盘；
// 同一题号已有作答时整行覆盖（修订语义）
func (r *SessionRepository) UpdateWithAnswer(s *model.InterviewSession, ans *model.InterviewAnswer) error {
	return r.runVersioned(s, func(tx *gorm.DB) error {
		var existing model.InterviewAnswer
		err := tx.Where("session_id = ? AND question_number = ?", ans.SessionID, ans.QuestionNumber).
			First(&existing).Error
		if err == nil {
			existing.Value = ans.Value
			existing.AnsweredAt = ans.AnsweredAt
			return tx.Save(&existing).Error
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(ans).Error
		}
		return err
	})
}

// UpdateWithEvidence 会话状态与材料记录在同一事务中落盘
func (r *SessionRepository) UpdateWithEvidence(s *model.InterviewSession, sub *model.EvidenceSubmission) error {
	return r.runVersioned(s, func(tx *gorm.DB) error {
		return tx.Save(sub).Error
	})
}

// UpdateWithRevision 回退到指定题号：删除该题号及其后的全部作答与材料记录。
// 必须物理删除：软删除的行仍占用 idx_session_question 唯一索引，
// 重新作答同一题号时 Create 会撞唯一键
func (r *SessionRepository) UpdateWithRevision(s *model.InterviewSession, fromNumber int) error {
	return r.runVersioned(s, func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("session_id = ? AND question_number >= ?", s.ID, fromNumber).
			Delete(&model.InterviewAnswer{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("session_id = ? AND question_number >= ?", s.ID, fromNumber).
			Delete(&model.EvidenceSubmission{}).Error
	})
}

func (r *SessionRepository) ListAnswers(sessionID string) ([]model.InterviewAnswer, error) {
	var answers []model.InterviewAnswer
	err := r.DB.Where("session_id = ?", sessionID).
		Order("question_number asc").Find(&answers).Error
	return answers, err
}

func (r *SessionRepository) CountAnswers(sessionID string) (int64, error) {
	var total int64
	err := r.DB.Model(&model.InterviewAnswer{}).
		Where("session_id = ?", sessionID).Count(&total).Error
	return total, err
}
