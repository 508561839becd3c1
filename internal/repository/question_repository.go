package repository

import (
	"vendor_vet_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// ListAll 按题号升序返回完整题库，启动时加载一次供状态机使用
func (r *QuestionRepository) ListAll() ([]model.VetQuestion, error) {
	var qs []model.VetQuestion
	err := r.DB.Order("number asc").Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) FindByNumber(number int) (*model.VetQuestion, error) {
	var q model.VetQuestion
	err := r.DB.Where("number = ?", number).First(&q).Error
	return &q, err
}
