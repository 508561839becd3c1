package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/util"
)

type stubReviewer struct {
	feedback    string
	err         error
	docCalls    int
	reasonCalls int
}

func (r *stubReviewer) ReviewDocument(ctx context.Context, req ReviewRequest) (string, error) {
	r.docCalls++
	if r.err != nil {
		return "", r.err
	}
	return r.feedback, nil
}

func (r *stubReviewer) EvaluateReason(ctx context.Context, req ReasonRequest) (string, error) {
	r.reasonCalls++
	if r.err != nil {
		return "", r.err
	}
	return r.feedback, nil
}

type stubBlob struct {
	keys []string
	err  error
}

func (b *stubBlob) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	io.Copy(io.Discard, reader)
	b.keys = append(b.keys, filename)
	return "blob://" + filename, nil
}

type evidenceFixture struct {
	interview *InterviewService
	evidence  *EvidenceService
	sessions  *memSessionStore
	store     *memEvidenceStore
	reviewer  *stubReviewer
	blob      *stubBlob
}

// newEvidenceFixture 准备一个已进入第 1 题材料收集阶段的会话
func newEvidenceFixture(t *testing.T) *evidenceFixture {
	t.Helper()
	interview, sessions, store := newTestInterview(nil)
	reviewer := &stubReviewer{feedback: "证书清晰有效，在有效期内。"}
	blob := &stubBlob{}
	svc := NewEvidenceService(interview, sessions, store, blob, reviewer, noopLocker{})

	ctx := context.Background()
	if _, err := interview.CreateOrResume(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := interview.SubmitAnswer(ctx, 1, 1, model.AnswerYes); err != nil {
		t.Fatal(err)
	}
	return &evidenceFixture{interview: interview, evidence: svc, sessions: sessions, store: store, reviewer: reviewer, blob: blob}
}

func (f *evidenceFixture) submitFile(t *testing.T, q, r int) (*model.EvidenceSubmission, error) {
	t.Helper()
	return f.evidence.SubmitFile(context.Background(), 1, FileSubmission{
		QuestionNumber:   q,
		RequirementIndex: r,
		FileName:         "cert.pdf",
		Reader:           strings.NewReader("%PDF-1.4"),
		Size:             8,
		ContentType:      "application/pdf",
		RespondentEmail:  "vendor@example.com",
	})
}

func TestSubmitFileGetsFeedback(t *testing.T) {
	f := newEvidenceFixture(t)

	sub, err := f.submitFile(t, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ReviewOutcome != model.ReviewFeedback || sub.Feedback == "" {
		t.Fatalf("expected feedback outcome, got %+v", sub)
	}
	if len(f.blob.keys) != 1 {
		t.Fatalf("file must be stored, got %v", f.blob.keys)
	}
	if f.reviewer.docCalls != 1 {
		t.Fatalf("reviewer should be called once, got %d", f.reviewer.docCalls)
	}

	// 反馈不是终态，会话仍停在该要求
	sess, _ := f.sessions.FindByRespondent(1)
	if sess.CurrentRequirement != 0 {
		t.Fatalf("session must stay at the requirement, got r=%d", sess.CurrentRequirement)
	}
}

func TestSubmitFileReviewerFailureKeepsPending(t *testing.T) {
	f := newEvidenceFixture(t)
	f.reviewer.err = util.Upstream("reviewer unreachable", errors.New("dial tcp"))

	_, err := f.submitFile(t, 1, 0)
	if util.KindOf(err) != util.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// 文件已保存，提交记录停留在 pending 等待重试
	if len(f.blob.keys) != 1 {
		t.Fatalf("file must be stored before the review call")
	}
	sub, findErr := f.store.FindLatest("sess-1", 1, 0)
	if findErr != nil || sub.ReviewOutcome != model.ReviewPending {
		t.Fatalf("expected pending submission, got %+v (%v)", sub, findErr)
	}

	// 重试复用已保存的文件，不再二次上传
	f.reviewer.err = nil
	retried, err := f.evidence.RetryReview(context.Background(), 1, 1, 0, "vendor@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if retried.ReviewOutcome != model.ReviewFeedback {
		t.Fatalf("retry should produce feedback, got %+v", retried)
	}
	if len(f.blob.keys) != 1 {
		t.Fatalf("retry must not upload again, got %v", f.blob.keys)
	}
}

func TestSubmitFileWrongRequirementRejected(t *testing.T) {
	f := newEvidenceFixture(t)

	if _, err := f.submitFile(t, 1, 1); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition for wrong requirement, got %v", err)
	}
	if _, err := f.submitFile(t, 2, 0); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition for wrong question, got %v", err)
	}
	if len(f.blob.keys) != 0 {
		t.Fatalf("rejected submission must not be stored")
	}
}

func TestJustificationEvaluated(t *testing.T) {
	f := newEvidenceFixture(t)

	sub, err := f.evidence.SubmitJustification(context.Background(), 1, 1, 0, "证书正在年审换发中", "vendor@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Kind != model.EvidenceJustification || sub.ReviewOutcome != model.ReviewFeedback {
		t.Fatalf("expected evaluated justification, got %+v", sub)
	}
	if f.reviewer.reasonCalls != 1 {
		t.Fatalf("reason evaluator should be called once")
	}

	if _, err := f.evidence.SubmitJustification(context.Background(), 1, 1, 0, "   ", "vendor@example.com"); util.KindOf(err) != util.KindValidation {
		t.Fatalf("blank justification must fail validation, got %v", err)
	}
}

func TestResolveAcceptAdvancesRequirement(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	if _, err := f.submitFile(t, 1, 0); err != nil {
		t.Fatal(err)
	}
	view, err := f.evidence.Resolve(ctx, 1, 1, 0, "accept")
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentRequirement != 1 {
		t.Fatalf("accept should advance to next requirement, got r=%d", view.Session.CurrentRequirement)
	}

	sub, _ := f.store.FindLatest("sess-1", 1, 0)
	if sub.ReviewOutcome != model.ReviewAccepted || sub.ResolvedAt == nil {
		t.Fatalf("submission must be terminally accepted, got %+v", sub)
	}
}

func TestResolveEscalateIsTerminalButNotBlocking(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	if _, err := f.submitFile(t, 1, 0); err != nil {
		t.Fatal(err)
	}
	view, err := f.evidence.Resolve(ctx, 1, 1, 0, "escalate")
	if err != nil {
		t.Fatal(err)
	}
	// 升级后访谈照常推进
	if view.Session.CurrentRequirement != 1 {
		t.Fatalf("escalation must not block the interview, got r=%d", view.Session.CurrentRequirement)
	}
}

func TestResolveWithoutFeedbackRejected(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	if _, err := f.evidence.Resolve(ctx, 1, 1, 0, "accept"); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("expected invalid transition without submission, got %v", err)
	}
	if _, err := f.evidence.Resolve(ctx, 1, 1, 0, "approve"); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation for unknown decision, got %v", err)
	}
}

func TestSkipEscalatesAndAdvances(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	if _, err := f.evidence.Skip(ctx, 1, 1, 0, ""); util.KindOf(err) != util.KindValidation {
		t.Fatalf("skip without comment must fail validation")
	}

	view, err := f.evidence.Skip(ctx, 1, 1, 0, "该文件由集团总部保管，无法即时提供")
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.CurrentRequirement != 1 {
		t.Fatalf("skip should advance to next requirement, got r=%d", view.Session.CurrentRequirement)
	}

	sub, _ := f.store.FindLatest("sess-1", 1, 0)
	if sub.Kind != model.EvidenceSkip || sub.ReviewOutcome != model.ReviewEscalated {
		t.Fatalf("skip must record an escalated submission, got %+v", sub)
	}
}

func TestLastRequirementReturnsToQuestions(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	f.evidence.Skip(ctx, 1, 1, 0, "无法提供")
	view, err := f.evidence.Skip(ctx, 1, 1, 1, "同上")
	if err != nil {
		t.Fatal(err)
	}
	if view.Session.Phase() != "asking" || view.Session.CurrentQuestion != 1 {
		t.Fatalf("finishing the last requirement should return to questions, got %+v", view.Session)
	}
	if view.Question == nil || view.Question.Number != 2 {
		t.Fatalf("expected question 2, got %+v", view.Question)
	}
}

func TestResolvedRequirementRejectsNewSubmissions(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	// 同一要求允许多次尝试，直到到达终态
	if _, err := f.submitFile(t, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.submitFile(t, 1, 0); err != nil {
		t.Fatal(err)
	}

	f.evidence.Resolve(ctx, 1, 1, 0, "accept")

	// 已接受的要求不再是当前要求，后续提交被拒绝
	if _, err := f.submitFile(t, 1, 0); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("resolved requirement must reject new submissions, got %v", err)
	}
}

func TestAttachAuditorFile(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	f.evidence.Skip(ctx, 1, 1, 0, "文件缺失")

	sub, err := f.evidence.AttachAuditorFile(ctx, 1, 1, 0, "supplement.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	if err != nil {
		t.Fatal(err)
	}
	if sub.AuditorFileURL == "" || sub.AuditorFileName != "supplement.pdf" {
		t.Fatalf("auditor file not attached: %+v", sub)
	}

	// 同一要求只允许补交一次
	if _, err := f.evidence.AttachAuditorFile(ctx, 1, 1, 0, "again.pdf", strings.NewReader("x"), 1, "application/pdf"); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("second attachment must be rejected, got %v", err)
	}
}

func TestAttachAuditorFileRequiresEscalation(t *testing.T) {
	f := newEvidenceFixture(t)
	ctx := context.Background()

	if _, err := f.submitFile(t, 1, 0); err != nil {
		t.Fatal(err)
	}
	f.evidence.Resolve(ctx, 1, 1, 0, "accept")

	if _, err := f.evidence.AttachAuditorFile(ctx, 1, 1, 0, "s.pdf", strings.NewReader("x"), 1, "application/pdf"); util.KindOf(err) != util.KindInvalidTransition {
		t.Fatalf("accepted requirement must not take auditor files, got %v", err)
	}
}
