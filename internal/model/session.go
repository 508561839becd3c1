package model

import "time"

type SessionStatus string

const (
	SessionActive          SessionStatus = "active"
	SessionDisqualified    SessionStatus = "disqualified"
	SessionReadyForScoring SessionStatus = "ready_for_scoring"
	SessionCompleted       SessionStatus = "completed"
)

const sessionPhaseAsking = "asking"
const sessionPhaseUploading = "uploading"

// InterviewSession 一个供应商一次完整（或进行中）的问卷访谈。
// CurrentQuestion 是题库序号（0 起），CurrentRequirement 为 -1 时表示
// 不在材料收集子流程中。Version 用于乐观并发控制：同一供应商开两个
// 标签页时，迟到的状态更新会因版本不匹配被拒绝。
// swagger:model InterviewSession
type InterviewSession struct {
	UUIDBase
	RespondentID       uint          `gorm:"uniqueIndex;type:bigint unsigned" json:"respondentId"`
	Status             SessionStatus `gorm:"size:20;default:'active'" json:"status"`
	CurrentQuestion    int           `gorm:"default:0" json:"currentQuestion"`
	CurrentRequirement int           `gorm:"default:-1" json:"currentRequirement"`
	Version            int64         `gorm:"default:0" json:"-"`

	// 评分结果，完成评分后回填
	Score      *int       `json:"score,omitempty"`
	Strengths  string     `gorm:"type:text" json:"strengths,omitempty"`
	Weaknesses string     `gorm:"type:text" json:"weaknesses,omitempty"`
	Summary    string     `gorm:"type:text" json:"summary,omitempty"`
	ScoredAt   *time.Time `json:"scoredAt,omitempty"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// Phase 会话当前所处阶段，由 CurrentRequirement 推导，避免双字段失配
func (s *InterviewSession) Phase() string {
	if s.CurrentRequirement >= 0 {
		return sessionPhaseUploading
	}
	return sessionPhaseAsking
}

// Terminal 会话是否已到终态（淘汰或已完成）
func (s *InterviewSession) Terminal() bool {
	return s.Status == SessionDisqualified || s.Status == SessionCompleted
}
