package model

import "encoding/json"

// EvidenceTrigger 声明问题在哪种回答下需要提交证明材料。
// 作为题库数据而不是按题号写死的特例，状态机据此保持通用。
type EvidenceTrigger string

const (
	TriggerYes  EvidenceTrigger = "yes"
	TriggerNo   EvidenceTrigger = "no"
	TriggerBoth EvidenceTrigger = "both"
	TriggerNone EvidenceTrigger = "none"
)

// VetQuestion 职业健康安全审核问卷中的一道题，题库固定、按 Number 排序
// swagger:model VetQuestion
type VetQuestion struct {
	BaseModel
	Number           int             `gorm:"uniqueIndex;not null" json:"number"`
	Text             string          `gorm:"type:text;not null" json:"text"`
	DisqualifiesIfNo bool            `gorm:"default:false" json:"disqualifiesIfNo"`
	EvidenceTrigger  EvidenceTrigger `gorm:"size:10;default:'yes'" json:"evidenceTrigger"`
	Requirements     json.RawMessage `gorm:"type:json" json:"requirements"` // JSON: []string
}

func (VetQuestion) TableName() string {
	return "vet_questions"
}

// RequirementList 解析 Requirements 字段，空或解析失败时返回空列表
func (q *VetQuestion) RequirementList() []string {
	if len(q.Requirements) == 0 {
		return nil
	}
	var reqs []string
	if err := json.Unmarshal(q.Requirements, &reqs); err != nil {
		return nil
	}
	return reqs
}

// RequiresEvidence 判断给定回答是否触发材料收集。
// 没有任何材料要求的问题无论怎么回答都不触发。
func (q *VetQuestion) RequiresEvidence(value AnswerValue) bool {
	if len(q.RequirementList()) == 0 {
		return false
	}
	switch q.EvidenceTrigger {
	case TriggerNone:
		return false
	case TriggerBoth:
		return true
	case TriggerNo:
		return value == AnswerNo
	default:
		return value == AnswerYes
	}
}

// MarshalRequirements 把要求列表编码为存储用的 JSON，种子数据使用
func MarshalRequirements(reqs []string) json.RawMessage {
	data, _ := json.Marshal(reqs)
	return data
}
