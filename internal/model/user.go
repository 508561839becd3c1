package model

import (
	"time"
)

type UserRole string

const (
	Respondent UserRole = "respondent"
	Auditor    UserRole = "auditor"
	Admin      UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('respondent','auditor','admin');default:'respondent'" json:"role"`
	Company   string    `gorm:"size:200" json:"company"` // 供应商/被审核方所属公司
	Phone     string    `gorm:"size:30" json:"phone"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
