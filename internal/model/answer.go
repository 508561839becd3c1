package model

import "time"

type AnswerValue string

const (
	AnswerYes AnswerValue = "yes"
	AnswerNo  AnswerValue = "no"
)

func (v AnswerValue) Valid() bool {
	return v == AnswerYes || v == AnswerNo
}

// InterviewAnswer 供应商对某道题的作答，同一会话同一题号只保留一条，
// 修订早先的回答时整行覆盖
// swagger:model InterviewAnswer
type InterviewAnswer struct {
	BaseModel
	SessionID      string      `gorm:"index;type:varchar(36);uniqueIndex:idx_session_question" json:"sessionId"`
	RespondentID   uint        `gorm:"index;type:bigint unsigned" json:"respondentId"`
	QuestionNumber int         `gorm:"uniqueIndex:idx_session_question" json:"questionNumber"`
	Value          AnswerValue `gorm:"size:10;not null" json:"value"`
	AnsweredAt     time.Time   `json:"answeredAt"`
}

func (InterviewAnswer) TableName() string {
	return "interview_answers"
}
