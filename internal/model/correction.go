package model

// AuditorCorrection 审核员针对 (供应商, 题号) 的人工评分修正。
// 只追加，不回写原始作答与材料记录。
// swagger:model AuditorCorrection
type AuditorCorrection struct {
	BaseModel
	RespondentID   uint   `gorm:"index;type:bigint unsigned;not null" json:"respondentId"`
	QuestionNumber int    `gorm:"index;not null" json:"questionNumber"`
	OverrideScore  int    `gorm:"not null" json:"overrideScore"`
	Comment        string `gorm:"type:text;not null" json:"comment"`
	AuditorID      uint   `gorm:"index;type:bigint unsigned;not null" json:"auditorId"`
}

func (AuditorCorrection) TableName() string {
	return "auditor_corrections"
}
