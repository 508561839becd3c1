package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionStore 访谈会话的持久化契约。会话状态更新与作答/材料追加
// 必须是同一事务，并带乐观版本检查。
type SessionStore interface {
	GetOrCreate(respondentID uint) (*model.InterviewSession, error)
	FindByRespondent(respondentID uint) (*model.InterviewSession, error)
	Update(s *model.InterviewSession) error
	UpdateWithAnswer(s *model.InterviewSession, ans *model.InterviewAnswer) error
	UpdateWithEvidence(s *model.InterviewSession, sub *model.EvidenceSubmission) error
	UpdateWithRevision(s *model.InterviewSession, fromNumber int) error
	ListAnswers(sessionID string) ([]model.InterviewAnswer, error)
}

// EvidenceStore 材料提交记录的持久化契约
type EvidenceStore interface {
	Create(sub *model.EvidenceSubmission) error
	Update(sub *model.EvidenceSubmission) error
	FindLatest(sessionID string, questionNumber, requirementIndex int) (*model.EvidenceSubmission, error)
	ListBySession(sessionID string) ([]model.EvidenceSubmission, error)
	ListStalePending(olderThan time.Duration) ([]model.EvidenceSubmission, error)
}

// SessionLocker 单会话临界区锁：同一会话不允许两个转换并发执行
type SessionLocker interface {
	Acquire(ctx context.Context, sessionID string) (func(), error)
}

// InterviewService 访谈会话状态机。驱动固定题库上的顺序推进，
// 决定何时进入材料收集子流程，并判定会话何时可以评分。
type InterviewService struct {
	Catalog  []model.VetQuestion
	Sessions SessionStore
	Evidence EvidenceStore
	Locker   SessionLocker
	Scorer   Scorer
}

func NewInterviewService(catalog []model.VetQuestion, sessions SessionStore, evidence EvidenceStore, locker SessionLocker, scorer Scorer) *InterviewService {
	return &InterviewService{
		Catalog:  catalog,
		Sessions: sessions,
		Evidence: evidence,
		Locker:   locker,
		Scorer:   scorer,
	}
}

// QuestionView 呈现给供应商的当前题目
type QuestionView struct {
	Number       int      `json:"number"`
	Text         string   `json:"text"`
	Requirements []string `json:"requirements,omitempty"`
	Index        int      `json:"index"`
	Total        int      `json:"total"`
}

// RequirementView 材料收集子流程中当前要求的状态
type RequirementView struct {
	Index      int                       `json:"index"`
	Text       string                    `json:"text"`
	Submission *model.EvidenceSubmission `json:"submission,omitempty"`
}

// SessionView 接口返回的会话快照
type SessionView struct {
	Session     *model.InterviewSession `json:"session"`
	Question    *QuestionView           `json:"question,omitempty"`
	Requirement *RequirementView        `json:"requirement,omitempty"`
	Answers     []model.InterviewAnswer `json:"answers"`
}

// CreateOrResume 创建或恢复会话。同一供应商重复调用返回同一条
// 会话记录，恢复时从持久化的 CurrentQuestion 处继续，不会重问。
func (s *InterviewService) CreateOrResume(ctx context.Context, respondentID uint) (*SessionView, error) {
	sess, err := s.Sessions.GetOrCreate(respondentID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return s.buildView(sess)
}

// GetSession 查看当前会话状态，不产生任何转换
func (s *InterviewService) GetSession(ctx context.Context, respondentID uint) (*SessionView, error) {
	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return s.buildView(sess)
}

// SubmitAnswer 对当前题目作答。只接受恰好处于提问阶段的当前题；
// 回答历史题走显式的 Revise。
func (s *InterviewService) SubmitAnswer(ctx context.Context, respondentID uint, questionNumber int, value model.AnswerValue) (*SessionView, error) {
	if !value.Valid() {
		return nil, util.Validation("answer must be yes or no")
	}

	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if sess.Status != model.SessionActive {
		return nil, util.InvalidTransition("interview is not active")
	}
	if sess.CurrentRequirement >= 0 {
		return nil, util.InvalidTransition("finish the current evidence requirement first")
	}
	if sess.CurrentQuestion >= len(s.Catalog) {
		return nil, util.InvalidTransition("no question is pending")
	}

	q := s.Catalog[sess.CurrentQuestion]
	if q.Number != questionNumber {
		return nil, util.InvalidTransition("not the current question")
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	defer release()

	ans := &model.InterviewAnswer{
		SessionID:      sess.ID,
		RespondentID:   respondentID,
		QuestionNumber: questionNumber,
		Value:          value,
		AnsweredAt:     time.Now(),
	}

	switch {
	case value == model.AnswerNo && q.DisqualifiesIfNo:
		sess.Status = model.SessionDisqualified
		sess.CurrentRequirement = -1
	case q.RequiresEvidence(value):
		sess.CurrentRequirement = 0
	default:
		s.advance(sess)
	}

	if err := s.Sessions.UpdateWithAnswer(sess, ans); err != nil {
		return nil, s.storeErr(err)
	}

	if sess.Status == model.SessionDisqualified {
		logger.Log.Info("interview disqualified",
			zap.Uint("respondent", respondentID),
			zap.Int("question", questionNumber))
	}

	return s.buildView(sess)
}

// Revise 回到某道已答过的题重新作答。该题之后的全部作答与材料
// 全部作废，之后的每道题都要重新确认。
func (s *InterviewService) Revise(ctx context.Context, respondentID uint, questionNumber int) (*SessionView, error) {
	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if sess.Status != model.SessionActive && sess.Status != model.SessionReadyForScoring {
		return nil, util.InvalidTransition("interview can no longer be revised")
	}

	idx := s.indexOf(questionNumber)
	if idx < 0 {
		return nil, util.Validation("unknown question number")
	}
	if idx > sess.CurrentQuestion {
		return nil, util.InvalidTransition("question has not been reached yet")
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	defer release()

	sess.Status = model.SessionActive
	sess.CurrentQuestion = idx
	sess.CurrentRequirement = -1

	if err := s.Sessions.UpdateWithRevision(sess, questionNumber); err != nil {
		return nil, s.storeErr(err)
	}
	return s.buildView(sess)
}

// FinalizeAndScore 会话全部作答完毕后请求外部总结评分。
// 上游不可达时会话保持 ReadyForScoring 可重试；拿到降级结果
// （纯文本、无分数）同样将会话置为 Completed。重复调用彼此独立。
func (s *InterviewService) FinalizeAndScore(ctx context.Context, respondentID uint) (*ScoringResult, error) {
	sess, err := s.Sessions.FindByRespondent(respondentID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if sess.Status != model.SessionReadyForScoring && sess.Status != model.SessionCompleted {
		return nil, util.InvalidTransition("interview is not ready for scoring")
	}

	transcript, err := s.BuildTranscript(sess)
	if err != nil {
		return nil, s.storeErr(err)
	}

	result, err := s.Scorer.Score(ctx, transcript)
	if err != nil {
		// 会话保持调用前状态，供应商可以重试
		return nil, err
	}

	release, err := s.Locker.Acquire(ctx, sess.ID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	defer release()

	now := time.Now()
	sess.Status = model.SessionCompleted
	sess.Score = result.Score
	sess.Strengths = strings.Join(result.Strengths, "\n")
	sess.Weaknesses = strings.Join(result.Weaknesses, "\n")
	sess.Summary = result.Summary
	sess.ScoredAt = &now

	if err := s.Sessions.Update(sess); err != nil {
		return nil, s.storeErr(err)
	}
	return result, nil
}

// BuildTranscript 按题库顺序组装 (题面, 回答) 问答记录；
// 被淘汰的会话只包含淘汰前收集到的作答
func (s *InterviewService) BuildTranscript(sess *model.InterviewSession) ([]TranscriptEntry, error) {
	answers, err := s.Sessions.ListAnswers(sess.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]TranscriptEntry, 0, len(answers))
	for _, a := range answers {
		idx := s.indexOf(a.QuestionNumber)
		if idx < 0 {
			continue
		}
		entries = append(entries, TranscriptEntry{
			QuestionNumber: a.QuestionNumber,
			Question:       s.Catalog[idx].Text,
			Answer:         string(a.Value),
		})
	}
	return entries, nil
}

// advance 推进到下一题，最后一题之后进入待评分
func (s *InterviewService) advance(sess *model.InterviewSession) {
	sess.CurrentRequirement = -1
	sess.CurrentQuestion++
	if sess.CurrentQuestion >= len(s.Catalog) {
		sess.Status = model.SessionReadyForScoring
	}
}

// nextRequirement 当前要求到达终态后推进到下一条要求，
// 最后一条完成后回到提问流程
func (s *InterviewService) nextRequirement(sess *model.InterviewSession) {
	q := s.Catalog[sess.CurrentQuestion]
	if sess.CurrentRequirement+1 < len(q.RequirementList()) {
		sess.CurrentRequirement++
	} else {
		s.advance(sess)
	}
}

func (s *InterviewService) indexOf(questionNumber int) int {
	for i, q := range s.Catalog {
		if q.Number == questionNumber {
			return i
		}
	}
	return -1
}

func (s *InterviewService) buildView(sess *model.InterviewSession) (*SessionView, error) {
	answers, err := s.Sessions.ListAnswers(sess.ID)
	if err != nil {
		return nil, s.storeErr(err)
	}

	view := &SessionView{Session: sess, Answers: answers}

	if sess.Status == model.SessionActive && sess.CurrentQuestion < len(s.Catalog) {
		q := s.Catalog[sess.CurrentQuestion]
		view.Question = &QuestionView{
			Number:       q.Number,
			Text:         q.Text,
			Requirements: q.RequirementList(),
			Index:        sess.CurrentQuestion,
			Total:        len(s.Catalog),
		}

		if sess.CurrentRequirement >= 0 {
			reqs := q.RequirementList()
			rv := &RequirementView{
				Index: sess.CurrentRequirement,
				Text:  reqs[sess.CurrentRequirement],
			}
			if sub, err := s.Evidence.FindLatest(sess.ID, q.Number, sess.CurrentRequirement); err == nil {
				rv.Submission = sub
			}
			view.Requirement = rv
		}
	}

	return view, nil
}

// storeErr 把存储层错误映射到核心错误分类
func (s *InterviewService) storeErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return util.NotFoundErr("session not found")
	case errors.Is(err, repository.ErrVersionConflict):
		return util.InvalidTransition("session was modified concurrently")
	case errors.Is(err, repository.ErrSessionBusy):
		return util.InvalidTransition("session is busy, retry shortly")
	default:
		return util.Persistence(err)
	}
}
