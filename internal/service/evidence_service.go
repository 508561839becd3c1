package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlobStore 材料文件的持久化存储；审阅基于存储后的引用进行，
// 所以上传必须先于审阅调用完成
type BlobStore interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

// EvidenceService 单个 (题号, 要求) 的材料收集子流程：
// 上传文件 / 提交缺失说明 / 带备注跳过，自动审阅反馈后
// 接受或升级给人工审核。升级是要求的终态，不阻塞访谈推进。
type EvidenceService struct {
	Interview *InterviewService
	Sessions  SessionStore
	Evidence  EvidenceStore
	Storage   BlobStore
	Reviewer  DocumentReviewer
	Locker    SessionLocker
}

func NewEvidenceService(interview *InterviewService, sessions SessionStore, evidence EvidenceStore, storage BlobStore, reviewer DocumentReviewer, locker SessionLocker) *EvidenceService {
	return &EvidenceService{
		Interview: interview,
		Sessions:  sessions,
		Evidence:  evidence,
		Storage:   storage,
		Reviewer:  reviewer,
		Locker:    locker,
	}
}

// FileSubmission 文件上传入参
type FileSubmission struct {
	QuestionNumber   int
	RequirementIndex int
	FileName         string
	Reader           io.Reader
	Size             int64
	ContentType      string
	RespondentEmail  string
}

// SubmitFile 上传一份材料并送自动审阅。文件先确认落入对象存储，
// 再携带存储引用发起审阅；审阅失败时提交记录保持 pending，
// 文件引用不丢，可通过 RetryReview 重试。
func (s *EvidenceService) SubmitFile(ctx context.Context, respondentID uint, req FileSubmission) (*model.EvidenceSubmission, error) {
	sess, q, err := s.current(respondentID, req.QuestionNumber, req.RequirementIndex)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}
	defer release()

	if err := s.ensureNotResolved(sess.ID, req.QuestionNumber, req.RequirementIndex); err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("evidence/%s/%d/%d/%s", sess.ID, req.QuestionNumber, req.RequirementIndex, req.FileName)
	fileURL, err := s.Storage.Upload(ctx, objectName, req.Reader, req.Size, req.ContentType)
	if err != nil {
		return nil, util.Persistence(err)
	}

	sub := &model.EvidenceSubmission{
		SessionID:        sess.ID,
		RespondentID:     respondentID,
		QuestionNumber:   req.QuestionNumber,
		RequirementIndex: req.RequirementIndex,
		Kind:             model.EvidenceFile,
		FileURL:          fileURL,
		FileName:         req.FileName,
		ReviewOutcome:    model.ReviewPending,
	}
	if err := s.Evidence.Create(sub); err != nil {
		return nil, util.Persistence(err)
	}

	return s.dispatchReview(ctx, sub, q, req.RespondentEmail)
}

// SubmitJustification 提交"为何无法提供该材料"的说明并送自动评估
func (s *EvidenceService) SubmitJustification(ctx context.Context, respondentID uint, questionNumber, requirementIndex int, justification, email string) (*model.EvidenceSubmission, error) {
	if strings.TrimSpace(justification) == "" {
		return nil, util.Validation("justification is required")
	}

	sess, q, err := s.current(respondentID, questionNumber, requirementIndex)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}
	defer release()

	if err := s.ensureNotResolved(sess.ID, questionNumber, requirementIndex); err != nil {
		return nil, err
	}

	sub := &model.EvidenceSubmission{
		SessionID:        sess.ID,
		RespondentID:     respondentID,
		QuestionNumber:   questionNumber,
		RequirementIndex: requirementIndex,
		Kind:             model.EvidenceJustification,
		Justification:    justification,
		ReviewOutcome:    model.ReviewPending,
	}
	if err := s.Evidence.Create(sub); err != nil {
		return nil, util.Persistence(err)
	}

	return s.dispatchReview(ctx, sub, q, email)
}

// Skip 带备注跳过当前要求：等同于不经自动反馈直接升级给人工审核
func (s *EvidenceService) Skip(ctx context.Context, respondentID uint, questionNumber, requirementIndex int, comment string) (*SessionView, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, util.Validation("comment is required")
	}

	sess, _, err := s.current(respondentID, questionNumber, requirementIndex)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}
	defer release()

	if err := s.ensureNotResolved(sess.ID, questionNumber, requirementIndex); err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.EvidenceSubmission{
		SessionID:        sess.ID,
		RespondentID:     respondentID,
		QuestionNumber:   questionNumber,
		RequirementIndex: requirementIndex,
		Kind:             model.EvidenceSkip,
		Justification:    comment,
		ReviewOutcome:    model.ReviewEscalated,
		ResolvedAt:       &now,
	}

	s.Interview.nextRequirement(sess)
	if err := s.Sessions.UpdateWithEvidence(sess, sub); err != nil {
		return nil, s.Interview.storeErr(err)
	}
	return s.Interview.buildView(sess)
}

// Resolve 对已有自动反馈的提交做出决定：接受，或升级人工审核。
// 两者都是要求的终态，访谈随之推进到下一条要求或下一题。
func (s *EvidenceService) Resolve(ctx context.Context, respondentID uint, questionNumber, requirementIndex int, decision string) (*SessionView, error) {
	var outcome model.ReviewOutcome
	switch decision {
	case "accept":
		outcome = model.ReviewAccepted
	case "escalate":
		outcome = model.ReviewEscalated
	default:
		return nil, util.Validation("decision must be accept or escalate")
	}

	sess, _, err := s.current(respondentID, questionNumber, requirementIndex)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}
	defer release()

	sub, err := s.Evidence.FindLatest(sess.ID, questionNumber, requirementIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.InvalidTransition("no submission to resolve")
		}
		return nil, util.Persistence(err)
	}
	if sub.ReviewOutcome != model.ReviewFeedback {
		return nil, util.InvalidTransition("submission has no feedback to resolve")
	}

	now := time.Now()
	sub.ReviewOutcome = outcome
	sub.ResolvedAt = &now

	s.Interview.nextRequirement(sess)
	if err := s.Sessions.UpdateWithEvidence(sess, sub); err != nil {
		return nil, s.Interview.storeErr(err)
	}
	return s.Interview.buildView(sess)
}

// RetryReview 审阅外呼失败后重试，复用已保存的文件引用或说明文本
func (s *EvidenceService) RetryReview(ctx context.Context, respondentID uint, questionNumber, requirementIndex int, email string) (*model.EvidenceSubmission, error) {
	sess, q, err := s.current(respondentID, questionNumber, requirementIndex)
	if err != nil {
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}
	defer release()

	sub, err := s.Evidence.FindLatest(sess.ID, questionNumber, requirementIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.InvalidTransition("no submission to retry")
		}
		return nil, util.Persistence(err)
	}
	if sub.ReviewOutcome != model.ReviewPending {
		return nil, util.InvalidTransition("submission is not awaiting review")
	}

	return s.dispatchReview(ctx, sub, q, email)
}

// AttachAuditorFile 升级后补交给人工审核的附加文件。
// 会话可能早已推进到后面的题，这里只校验提交记录本身的状态。
func (s *EvidenceService) AttachAuditorFile(ctx context.Context, respondentID uint, questionNumber, requirementIndex int, fileName string, reader io.Reader, size int64, contentType string) (*model.EvidenceSubmission, error) {
	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, s.Interview.storeErr(err)
	}

	sub, err := s.Evidence.FindLatest(sess.ID, questionNumber, requirementIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.InvalidTransition("no escalated submission for this requirement")
		}
		return nil, util.Persistence(err)
	}
	if sub.ReviewOutcome != model.ReviewEscalated {
		return nil, util.InvalidTransition("requirement is not escalated")
	}
	if sub.AuditorFileURL != "" {
		return nil, util.InvalidTransition("auditor file already attached")
	}

	objectName := fmt.Sprintf("auditor/%s/%d/%d/%s", sess.ID, questionNumber, requirementIndex, fileName)
	fileURL, err := s.Storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return nil, util.Persistence(err)
	}

	sub.AuditorFileURL = fileURL
	sub.AuditorFileName = fileName
	if err := s.Evidence.Update(sub); err != nil {
		return nil, util.Persistence(err)
	}
	return sub, nil
}

// SweepStalePending 后台巡检：统计长期停留在 pending 的提交并告警，
// 不改动任何审阅结论
func (s *EvidenceService) SweepStalePending(olderThan time.Duration) error {
	subs, err := s.Evidence.ListStalePending(olderThan)
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		logger.Log.Warn("evidence submissions stuck in pending review",
			zap.Int("count", len(subs)),
			zap.Duration("older_than", olderThan))
	}
	return nil
}

// current 校验 (题号, 要求序号) 恰好是会话当前等待的那一条
func (s *EvidenceService) current(respondentID uint, questionNumber, requirementIndex int) (*model.InterviewSession, *model.VetQuestion, error) {
	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, nil, s.Interview.storeErr(err)
	}
	if sess.Status != model.SessionActive {
		return nil, nil, util.InvalidTransition("interview is not active")
	}
	if sess.CurrentRequirement < 0 {
		return nil, nil, util.InvalidTransition("no evidence requirement is pending")
	}
	if sess.CurrentQuestion >= len(s.Interview.Catalog) {
		return nil, nil, util.InvalidTransition("no question is pending")
	}
	q := s.Interview.Catalog[sess.CurrentQuestion]
	if q.Number != questionNumber || sess.CurrentRequirement != requirementIndex {
		return nil, nil, util.InvalidTransition("not the current evidence requirement")
	}
	return sess, &q, nil
}

// ensureNotResolved 已到终态的要求不接受新的提交
func (s *EvidenceService) ensureNotResolved(sessionID string, questionNumber, requirementIndex int) error {
	latest, err := s.Evidence.FindLatest(sessionID, questionNumber, requirementIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return util.Persistence(err)
	}
	if latest.ReviewOutcome.Terminal() {
		return util.InvalidTransition("requirement is already resolved")
	}
	return nil
}

// dispatchReview 按提交类型调用对应的自动审阅协作方。
// 外呼失败时提交停留在 pending，返回可重试错误。
func (s *EvidenceService) dispatchReview(ctx context.Context, sub *model.EvidenceSubmission, q *model.VetQuestion, email string) (*model.EvidenceSubmission, error) {
	reqs := q.RequirementList()
	requirement := ""
	if sub.RequirementIndex < len(reqs) {
		requirement = reqs[sub.RequirementIndex]
	}

	var feedback string
	var err error
	switch sub.Kind {
	case model.EvidenceFile:
		feedback, err = s.Reviewer.ReviewDocument(ctx, ReviewRequest{
			FileURL:         sub.FileURL,
			FileName:        sub.FileName,
			Requirement:     requirement,
			QuestionNumber:  sub.QuestionNumber,
			RespondentEmail: email,
		})
	case model.EvidenceJustification:
		feedback, err = s.Reviewer.EvaluateReason(ctx, ReasonRequest{
			Justification:   sub.Justification,
			Requirement:     requirement,
			QuestionNumber:  sub.QuestionNumber,
			RespondentEmail: email,
		})
	default:
		return nil, util.InvalidTransition("submission kind does not need review")
	}
	if err != nil {
		return nil, err
	}

	sub.Feedback = feedback
	sub.ReviewOutcome = model.ReviewFeedback
	if err := s.Evidence.Update(sub); err != nil {
		return nil, util.Persistence(err)
	}
	return sub, nil
}
