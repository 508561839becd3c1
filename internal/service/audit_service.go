package service

import (
	"context"
	"strings"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"
)

// CorrectionInput 审核员对某个供应商某题的评分覆写
type CorrectionInput struct {
	RespondentID   uint   `json:"respondentId" binding:"required"`
	QuestionNumber int    `json:"questionNumber" binding:"required"`
	OverrideScore  *int   `json:"overrideScore" binding:"required"`
	Comment        string `json:"comment" binding:"required"`
}

// AuditStore 覆写台账与审核员视图的持久化契约
type AuditStore interface {
	CreateCorrection(c *model.AuditorCorrection) error
	ListCorrections(respondentID uint) ([]model.AuditorCorrection, error)
	ListAnswers(page, limit int, search string) ([]repository.AuditAnswerRow, int64, error)
}

// AuditService 审核员侧的只读视图与覆写台账。
// 覆写记录只追加不修改，同一题的最新一条为准。
type AuditService struct {
	Audit     AuditStore
	Interview *InterviewService
}

func NewAuditService(audit AuditStore, interview *InterviewService) *AuditService {
	return &AuditService{Audit: audit, Interview: interview}
}

// RecordCorrection 记录一条覆写。分数与备注缺一不可：
// 没有理由的改分不落库。
func (s *AuditService) RecordCorrection(ctx context.Context, auditorID uint, in CorrectionInput) (*model.AuditorCorrection, error) {
	if in.OverrideScore == nil {
		return nil, util.Validation("override score is required")
	}
	if *in.OverrideScore < 0 || *in.OverrideScore > 100 {
		return nil, util.Validation("override score must be between 0 and 100")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return nil, util.Validation("comment is required")
	}
	if s.Interview.indexOf(in.QuestionNumber) < 0 {
		return nil, util.Validation("unknown question number")
	}

	corr := &model.AuditorCorrection{
		RespondentID:   in.RespondentID,
		QuestionNumber: in.QuestionNumber,
		OverrideScore:  *in.OverrideScore,
		Comment:        in.Comment,
		AuditorID:      auditorID,
	}
	if err := s.Audit.CreateCorrection(corr); err != nil {
		return nil, util.Persistence(err)
	}
	return corr, nil
}

// ListCorrections 按时间倒序列出覆写台账，可按供应商过滤
func (s *AuditService) ListCorrections(ctx context.Context, respondentID uint) ([]model.AuditorCorrection, error) {
	corrs, err := s.Audit.ListCorrections(respondentID)
	if err != nil {
		return nil, util.Persistence(err)
	}
	return corrs, nil
}

// ListAnswers 审核员分页浏览所有供应商的作答
func (s *AuditService) ListAnswers(ctx context.Context, page, limit int, search string) ([]repository.AuditAnswerRow, int64, error) {
	rows, total, err := s.Audit.ListAnswers(page, limit, search)
	if err != nil {
		return nil, 0, util.Persistence(err)
	}
	return rows, total, nil
}

// GetTranscript 按题库顺序导出某个供应商的完整作答与材料记录
func (s *AuditService) GetTranscript(ctx context.Context, respondentID uint) ([]TranscriptEntry, []model.EvidenceSubmission, error) {
	sess, err := s.Interview.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, nil, s.Interview.storeErr(err)
	}
	transcript, err := s.Interview.BuildTranscript(sess)
	if err != nil {
		return nil, nil, s.Interview.storeErr(err)
	}
	subs, err := s.Interview.Evidence.ListBySession(sess.ID)
	if err != nil {
		return nil, nil, util.Persistence(err)
	}
	return transcript, subs, nil
}
