package model

import "time"

// ReviewOutcome 材料提交的审阅状态。accepted 与 escalated 是终态，
// 只有到达终态的要求才允许访谈继续推进。
type ReviewOutcome string

const (
	ReviewPending   ReviewOutcome = "pending"
	ReviewFeedback  ReviewOutcome = "feedback"
	ReviewAccepted  ReviewOutcome = "accepted"
	ReviewEscalated ReviewOutcome = "escalated"
)

func (o ReviewOutcome) Terminal() bool {
	return o == ReviewAccepted || o == ReviewEscalated
}

type EvidenceKind string

const (
	EvidenceFile          EvidenceKind = "file"
	EvidenceJustification EvidenceKind = "justification"
	EvidenceSkip          EvidenceKind = "skip"
)

// EvidenceSubmission 针对 (题号, 要求序号) 的一次材料提交：
// 上传的文件、或一段"为何没有该文件"的说明、或带备注的跳过。
// 升级给审核员后还可以补一个附加文件进入人工复核队列。
// swagger:model EvidenceSubmission
type EvidenceSubmission struct {
	UUIDBase
	SessionID        string       `gorm:"index;type:varchar(36)" json:"sessionId"`
	RespondentID     uint         `gorm:"index;type:bigint unsigned" json:"respondentId"`
	QuestionNumber   int          `gorm:"index" json:"questionNumber"`
	RequirementIndex int          `json:"requirementIndex"`
	Kind             EvidenceKind `gorm:"size:20;not null" json:"kind"`

	FileURL       string `gorm:"size:500" json:"fileUrl,omitempty"`
	FileName      string `gorm:"size:255" json:"fileName,omitempty"`
	Justification string `gorm:"type:text" json:"justification,omitempty"`

	Feedback      string        `gorm:"type:text" json:"feedback,omitempty"` // 自动审阅反馈
	ReviewOutcome ReviewOutcome `gorm:"size:20;default:'pending'" json:"reviewOutcome"`

	// 升级后补交给人工审核的附加文件
	AuditorFileURL  string     `gorm:"size:500" json:"auditorFileUrl,omitempty"`
	AuditorFileName string     `gorm:"size:255" json:"auditorFileName,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

func (EvidenceSubmission) TableName() string {
	return "evidence_submissions"
}
