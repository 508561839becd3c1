package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"

	"gorm.io/gorm"
)

// ---- 内存桩实现 ----

type memEvidenceStore struct {
	subs   []*model.EvidenceSubmission
	nextID int
}

func (m *memEvidenceStore) Create(sub *model.EvidenceSubmission) error {
	m.nextID++
	sub.ID = fmt.Sprintf("sub-%d", m.nextID)
	sub.CreatedAt = time.Now()
	m.subs = append(m.subs, sub)
	return nil
}

func (m *memEvidenceStore) Update(sub *model.EvidenceSubmission) error {
	for i, s := range m.subs {
		if s.ID == sub.ID {
			m.subs[i] = sub
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memEvidenceStore) FindLatest(sessionID string, questionNumber, requirementIndex int) (*model.EvidenceSubmission, error) {
	for i := len(m.subs) - 1; i >= 0; i-- {
		s := m.subs[i]
		if s.SessionID == sessionID && s.QuestionNumber == questionNumber && s.RequirementIndex == requirementIndex {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memEvidenceStore) ListBySession(sessionID string) ([]model.EvidenceSubmission, error) {
	var out []model.EvidenceSubmission
	for _, s := range m.subs {
		if s.SessionID == sessionID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memEvidenceStore) ListStalePending(olderThan time.Duration) ([]model.EvidenceSubmission, error) {
	cutoff := time.Now().Add(-olderThan)
	var out []model.EvidenceSubmission
	for _, s := range m.subs {
		if s.ReviewOutcome == model.ReviewPending && s.CreatedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memSessionStore struct {
	sessions  map[uint]*model.InterviewSession
	answers   map[string][]model.InterviewAnswer
	evidence  *memEvidenceStore
	updateErr error
}

func newMemSessionStore(evidence *memEvidenceStore) *memSessionStore {
	return &memSessionStore{
		sessions: map[uint]*model.InterviewSession{},
		answers:  map[string][]model.InterviewAnswer{},
		evidence: evidence,
	}
}

func (m *memSessionStore) GetOrCreate(respondentID uint) (*model.InterviewSession, error) {
	if s, ok := m.sessions[respondentID]; ok {
		return s, nil
	}
	s := &model.InterviewSession{
		RespondentID:       respondentID,
		Status:             model.SessionActive,
		CurrentRequirement: -1,
	}
	s.ID = fmt.Sprintf("sess-%d", respondentID)
	m.sessions[respondentID] = s
	return s, nil
}

func (m *memSessionStore) FindByRespondent(respondentID uint) (*model.InterviewSession, error) {
	if s, ok := m.sessions[respondentID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memSessionStore) Update(s *model.InterviewSession) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.sessions[s.RespondentID] = s
	return nil
}

func (m *memSessionStore) UpdateWithAnswer(s *model.InterviewSession, ans *model.InterviewAnswer) error {
	if err := m.Update(s); err != nil {
		return err
	}
	list := m.answers[s.ID]
	for i, a := range list {
		if a.QuestionNumber == ans.QuestionNumber {
			list[i] = *ans
			m.answers[s.ID] = list
			return nil
		}
	}
	m.answers[s.ID] = append(list, *ans)
	return nil
}

func (m *memSessionStore) UpdateWithEvidence(s *model.InterviewSession, sub *model.EvidenceSubmission) error {
	if err := m.Update(s); err != nil {
		return err
	}
	if sub.ID == "" {
		return m.evidence.Create(sub)
	}
	return m.evidence.Update(sub)
}

func (m *memSessionStore) UpdateWithRevision(s *model.InterviewSession, fromNumber int) error {
	if err := m.Update(s); err != nil {
		return err
	}
	var kept []model.InterviewAnswer
	for _, a := range m.answers[s.ID] {
		if a.QuestionNumber < fromNumber {
			kept = append(kept, a)
		}
	}
	m.answers[s.ID] = kept

	var keptSubs []*model.EvidenceSubmission
	for _, sub := range m.evidence.subs {
		if sub.SessionID != s.ID || sub.QuestionNumber < fromNumber {
			keptSubs = append(keptSubs, sub)
		}
	}
	m.evidence.subs = keptSubs
	return nil
}

func (m *memSessionStore) ListAnswers(sessionID string) ([]model.InterviewAnswer, error) {
	return m.answers[sessionID], nil
}

type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	return func() {}, nil
}

type stubScorer struct {
	result *ScoringResult
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, transcript []TranscriptEntry) (*ScoringResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testCatalog() []model.VetQuestion {
	return []model.VetQuestion{
		{
			Number:           1,
			Text:             "是否建立职业健康安全管理体系？",
			DisqualifiesIfNo: true,
			EvidenceTrigger:  model.TriggerYes,
			Requirements:     model.MarshalRequirements([]string{"体系认证证书", "内审报告"}),
		},
		{
			Number:          2,
			Text:            "近三年是否发生过安全生产事故？",
			EvidenceTrigger: model.TriggerBoth,
			Requirements:    model.MarshalRequirements([]string{"事故台账或无事故证明"}),
		},
		{
			Number:          3,
			Text:            "是否接受现场安全检查？",
			EvidenceTrigger: model.TriggerNone,
		},
	}
}

func newTestInterview(scorer Scorer) (*InterviewService, *memSessionStore, *memEvidenceStore) {
	evidence := &memEvidenceStore{}
	sessions := newMemSessionStore(evidence)
	if scorer == nil {
		scorer = &stubScorer{result: &ScoringResult{Summary: "ok"}}
	}
	svc := NewInterviewService(testCatalog(), sessions, evidence, noopLocker{}, scorer)
	return svc, sessions, evidence
}

// ---- 会话生命周期 ----

func TestCreateOrResumeIdempotent(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()

	first, err := svc.CreateOrResume(ctx, 7)
	if err != nil {
		t.Fatalf("CreateOrResume: %v", err)
	}
	second, err := svc.CreateOrResume(ctx, 7)
	if err != nil {
		t.Fatalf("CreateOrResume again: %v", err)
	}
	if first.Session.ID != second.Session.ID {
		t.Fatalf("expected same session, got %s and %s", first.Session.ID, second.Session.ID)
	}
	if second.Question == nil || second.Question.Number != 1 {
		t.Fatalf("expected first question, got %+v", second.Question)
	}
}

func TestResumeKeepsProgress(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()

	if _, err := svc.CreateOrResume(ctx, 1); err != nil {
		t.Fatal(err)
	}
	// 第 1 题回答"是"进入材料收集
	if _, err := svc.SubmitAnswer(ctx, 1, 1, model.AnswerYes); err != nil {
		t.Fatal(err)
	}

	view, err := svc.CreateOrResume(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentQuestion != 0 || view.Session.CurrentRequirement != 0 {
		t.Fatalf("resume lost position: q=%d r=%d", view.Session.CurrentQuestion, view.Session.CurrentRequirement)
	}
	if view.Requirement == nil || view.Requirement.Text != "体系认证证书" {
		t.Fatalf("expected first requirement, got %+v", view.Requirement)
	}
}

// ---- 作答与推进 ----

func TestSubmitAnswerInvalidValue(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	_, err := svc.SubmitAnswer(ctx, 1, 1, "maybe")
	if util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitAnswerDisqualifies(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	view, err := svc.SubmitAnswer(ctx, 1, 1, model.AnswerNo)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Status != model.SessionDisqualified {
		t.Fatalf("expected disqualified, got %s", view.Session.Status)
	}

	// 淘汰后任何作答都被拒绝
	if _, err := svc.SubmitAnswer(ctx, 1, 2, model.AnswerYes); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	// 淘汰是终态，评分也被拒绝
	if _, err := svc.FinalizeAndScore(ctx, 1); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	// 作答仍被保留
	answers, _ := sessions.ListAnswers(view.Session.ID)
	if len(answers) != 1 || answers[0].Value != model.AnswerNo {
		t.Fatalf("expected recorded answer, got %+v", answers)
	}
}

func TestSubmitAnswerEntersUploadPhase(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	view, err := svc.SubmitAnswer(ctx, 1, 1, model.AnswerYes)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Phase() != "uploading" || view.Session.CurrentRequirement != 0 {
		t.Fatalf("expected upload phase at requirement 0, got %+v", view.Session)
	}

	// 材料收集未完成时不接受下一题作答
	if _, err := svc.SubmitAnswer(ctx, 1, 2, model.AnswerYes); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTriggerBothCollectsOnNo(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 9)

	// 跳到第 2 题
	sess, _ := sessions.FindByRespondent(9)
	sess.CurrentQuestion = 1

	view, err := svc.SubmitAnswer(ctx, 9, 2, model.AnswerNo)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentRequirement != 0 {
		t.Fatalf("both-trigger question should collect evidence on no, got r=%d", view.Session.CurrentRequirement)
	}
}

func TestNoRequirementsNeverTriggers(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 3)

	sess, _ := sessions.FindByRespondent(3)
	sess.CurrentQuestion = 2 // 第 3 题没有材料要求

	view, err := svc.SubmitAnswer(ctx, 3, 3, model.AnswerYes)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentRequirement != -1 {
		t.Fatalf("question without requirements must not enter upload phase")
	}
	if view.Session.Status != model.SessionReadyForScoring {
		t.Fatalf("last question should finish the interview, got %s", view.Session.Status)
	}
}

func TestSubmitAnswerWrongQuestion(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	if _, err := svc.SubmitAnswer(ctx, 1, 2, model.AnswerYes); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition for out-of-order answer, got %v", err)
	}
}

// ---- 修订 ----

func TestReviseInvalidatesLaterWork(t *testing.T) {
	svc, sessions, evidence := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	sess, _ := sessions.FindByRespondent(1)
	sess.CurrentQuestion = 2
	sessions.answers[sess.ID] = []model.InterviewAnswer{
		{SessionID: sess.ID, QuestionNumber: 1, Value: model.AnswerYes},
		{SessionID: sess.ID, QuestionNumber: 2, Value: model.AnswerNo},
	}
	evidence.Create(&model.EvidenceSubmission{SessionID: sess.ID, QuestionNumber: 2, ReviewOutcome: model.ReviewAccepted})

	view, err := svc.Revise(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentQuestion != 1 || view.Session.CurrentRequirement != -1 {
		t.Fatalf("revise should rewind to question index 1, got %+v", view.Session)
	}

	answers, _ := sessions.ListAnswers(sess.ID)
	if len(answers) != 1 || answers[0].QuestionNumber != 1 {
		t.Fatalf("answers from revised question onward must be dropped, got %+v", answers)
	}
	subs, _ := evidence.ListBySession(sess.ID)
	if len(subs) != 0 {
		t.Fatalf("evidence from revised question onward must be dropped, got %+v", subs)
	}
}

func TestReviseFromReadyForScoring(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	sess, _ := sessions.FindByRespondent(1)
	sess.Status = model.SessionReadyForScoring
	sess.CurrentQuestion = 3

	view, err := svc.Revise(ctx, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Status != model.SessionActive {
		t.Fatalf("revise should reactivate the session, got %s", view.Session.Status)
	}
}

func TestReviseUnreachedQuestion(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	if _, err := svc.Revise(ctx, 1, 3); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := svc.Revise(ctx, 1, 99); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation for unknown question, got %v", err)
	}
}

// ---- 评分 ----

func readySession(t *testing.T, svc *InterviewService, sessions *memSessionStore, respondentID uint) *model.InterviewSession {
	t.Helper()
	if _, err := svc.CreateOrResume(context.Background(), respondentID); err != nil {
		t.Fatal(err)
	}
	sess, _ := sessions.FindByRespondent(respondentID)
	sess.Status = model.SessionReadyForScoring
	sess.CurrentQuestion = 3
	sessions.answers[sess.ID] = []model.InterviewAnswer{
		{SessionID: sess.ID, QuestionNumber: 1, Value: model.AnswerYes},
		{SessionID: sess.ID, QuestionNumber: 2, Value: model.AnswerNo},
		{SessionID: sess.ID, QuestionNumber: 3, Value: model.AnswerYes},
	}
	return sess
}

func TestFinalizeAndScoreSuccess(t *testing.T) {
	score := 85
	scorer := &stubScorer{result: &ScoringResult{
		Score:      &score,
		Strengths:  []string{"体系完善"},
		Weaknesses: []string{"应急演练频次不足"},
	}}
	svc, sessions, _ := newTestInterview(scorer)
	sess := readySession(t, svc, sessions, 1)

	result, err := svc.FinalizeAndScore(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score == nil || *result.Score != 85 {
		t.Fatalf("expected score 85, got %+v", result)
	}
	if sess.Status != model.SessionCompleted {
		t.Fatalf("expected completed, got %s", sess.Status)
	}
	if sess.Score == nil || *sess.Score != 85 || sess.ScoredAt == nil {
		t.Fatalf("score not persisted: %+v", sess)
	}
}

func TestFinalizeAndScoreUpstreamFailureKeepsState(t *testing.T) {
	scorer := &stubScorer{err: util.Upstream("scoring service unreachable", errors.New("dial tcp"))}
	svc, sessions, _ := newTestInterview(scorer)
	sess := readySession(t, svc, sessions, 1)

	_, err := svc.FinalizeAndScore(context.Background(), 1)
	if util.KindOf(err) != util.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if sess.Status != model.SessionReadyForScoring {
		t.Fatalf("session must stay ready for retry, got %s", sess.Status)
	}

	// 重试成功
	scorer.err = nil
	scorer.result = &ScoringResult{Summary: "总体合格"}
	if _, err := svc.FinalizeAndScore(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.SessionCompleted {
		t.Fatalf("retry should complete the session, got %s", sess.Status)
	}
}

func TestFinalizeAndScoreDegradedResultCompletes(t *testing.T) {
	scorer := &stubScorer{result: &ScoringResult{Summary: "该供应商整体表现良好。"}}
	svc, sessions, _ := newTestInterview(scorer)
	sess := readySession(t, svc, sessions, 1)

	result, err := svc.FinalizeAndScore(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Score != nil {
		t.Fatalf("degraded result must carry no score")
	}
	if sess.Status != model.SessionCompleted || sess.Summary == "" {
		t.Fatalf("degraded result must still complete the session: %+v", sess)
	}
}

func TestFinalizeAndScoreRejectsActiveSession(t *testing.T) {
	svc, _, _ := newTestInterview(nil)
	svc.CreateOrResume(context.Background(), 1)

	if _, err := svc.FinalizeAndScore(context.Background(), 1); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestBuildTranscriptFollowsCatalogOrder(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	sess := readySession(t, svc, sessions, 1)

	transcript, err := svc.BuildTranscript(sess)
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(transcript))
	}
	if transcript[0].Question == "" || transcript[0].Answer != "yes" {
		t.Fatalf("transcript entry must pair question text with answer: %+v", transcript[0])
	}
}

// ---- 并发与存储错误映射 ----

func TestVersionConflictMapsToConflict(t *testing.T) {
	svc, sessions, _ := newTestInterview(nil)
	ctx := context.Background()
	svc.CreateOrResume(ctx, 1)

	sessions.updateErr = repository.ErrVersionConflict
	_, err := svc.SubmitAnswer(ctx, 1, 1, model.AnswerYes)
	if util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("version conflict should surface as conflict, got %v", err)
	}
}

func TestMissingSessionMapsToNotFound(t *testing.T) {
	svc, _, _ := newTestInterview(nil)

	_, err := svc.GetSession(context.Background(), 42)
	if util.KindOf(err) != util.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
