package service

import (
	"context"
	"testing"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"
)

type memAuditStore struct {
	corrections []model.AuditorCorrection
}

func (m *memAuditStore) CreateCorrection(c *model.AuditorCorrection) error {
	m.corrections = append(m.corrections, *c)
	return nil
}

func (m *memAuditStore) ListCorrections(respondentID uint) ([]model.AuditorCorrection, error) {
	if respondentID == 0 {
		return m.corrections, nil
	}
	var out []model.AuditorCorrection
	for _, c := range m.corrections {
		if c.RespondentID == respondentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memAuditStore) ListAnswers(page, limit int, search string) ([]repository.AuditAnswerRow, int64, error) {
	return nil, 0, nil
}

func newTestAudit() (*AuditService, *memAuditStore) {
	interview, _, _ := newTestInterview(nil)
	store := &memAuditStore{}
	return NewAuditService(store, interview), store
}

func intPtr(v int) *int { return &v }

func TestRecordCorrection(t *testing.T) {
	svc, store := newTestAudit()

	corr, err := svc.RecordCorrection(context.Background(), 99, CorrectionInput{
		RespondentID:   1,
		QuestionNumber: 2,
		OverrideScore:  intPtr(60),
		Comment:        "事故台账与现场核查不符，下调评分",
	})
	if err != nil {
		t.Fatal(err)
	}
	if corr.AuditorID != 99 || corr.OverrideScore != 60 {
		t.Fatalf("correction not recorded faithfully: %+v", corr)
	}
	if len(store.corrections) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(store.corrections))
	}
}

func TestRecordCorrectionValidation(t *testing.T) {
	svc, store := newTestAudit()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CorrectionInput
	}{
		{"missing comment", CorrectionInput{RespondentID: 1, QuestionNumber: 1, OverrideScore: intPtr(50)}},
		{"blank comment", CorrectionInput{RespondentID: 1, QuestionNumber: 1, OverrideScore: intPtr(50), Comment: "   "}},
		{"missing score", CorrectionInput{RespondentID: 1, QuestionNumber: 1, Comment: "理由"}},
		{"score too high", CorrectionInput{RespondentID: 1, QuestionNumber: 1, OverrideScore: intPtr(101), Comment: "理由"}},
		{"score negative", CorrectionInput{RespondentID: 1, QuestionNumber: 1, OverrideScore: intPtr(-1), Comment: "理由"}},
		{"unknown question", CorrectionInput{RespondentID: 1, QuestionNumber: 42, OverrideScore: intPtr(50), Comment: "理由"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordCorrection(ctx, 99, tc.in); util.KindOf(err) != util.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// 校验失败不能留下任何台账记录
	if len(store.corrections) != 0 {
		t.Fatalf("rejected corrections must not be persisted, got %d rows", len(store.corrections))
	}
}

func TestCorrectionsAreAppendOnly(t *testing.T) {
	svc, store := newTestAudit()
	ctx := context.Background()

	for _, score := range []int{60, 70} {
		if _, err := svc.RecordCorrection(ctx, 99, CorrectionInput{
			RespondentID:   1,
			QuestionNumber: 1,
			OverrideScore:  intPtr(score),
			Comment:        "复核调整",
		}); err != nil {
			t.Fatal(err)
		}
	}

	// 同一题的两次覆写都留在台账里
	rows, err := svc.ListCorrections(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	_ = store
}

func TestGetTranscriptCombinesAnswersAndEvidence(t *testing.T) {
	interview, sessions, evidenceStore := newTestInterview(nil)
	store := &memAuditStore{}
	svc := NewAuditService(store, interview)
	ctx := context.Background()

	if _, err := interview.CreateOrResume(ctx, 5); err != nil {
		t.Fatal(err)
	}
	sess, _ := sessions.FindByRespondent(5)
	sessions.answers[sess.ID] = []model.InterviewAnswer{
		{SessionID: sess.ID, QuestionNumber: 1, Value: model.AnswerYes},
	}
	evidenceStore.Create(&model.EvidenceSubmission{
		SessionID:      sess.ID,
		QuestionNumber: 1,
		Kind:           model.EvidenceSkip,
		ReviewOutcome:  model.ReviewEscalated,
	})

	transcript, evidence, err := svc.GetTranscript(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 1 || len(evidence) != 1 {
		t.Fatalf("expected 1 answer and 1 submission, got %d/%d", len(transcript), len(evidence))
	}

	// 没有会话的供应商返回未找到
	if _, _, err := svc.GetTranscript(ctx, 404); util.KindOf(err) != util.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
