package database

import (
	"fmt"
	"log"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.VetQuestion{},
		&model.InterviewSession{},
		&model.InterviewAnswer{},
		&model.EvidenceSubmission{},
		&model.AuditorCorrection{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认职业健康安全审核题库（题库为空时插入）
	var count int64
	db.Model(&model.VetQuestion{}).Count(&count)
	if count == 0 {
		for _, q := range defaultCatalog() {
			db.Create(&q)
		}
		log.Println("Default vetting catalog seeded")
	}

	return db, nil
}

// defaultCatalog 固定顺序的职业健康安全供应商审核问卷。
// 材料触发条件是题库数据：第 6 题无论回答"是/否"都需要提交
// 事故记录，其余题目只在"是"时收集材料。
func defaultCatalog() []model.VetQuestion {
	return []model.VetQuestion{
		{
			Number:           1,
			Text:             "贵公司是否建立了职业健康安全管理体系（如 ISO 45001）？",
			DisqualifiesIfNo: true,
			EvidenceTrigger:  model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"职业健康安全管理体系认证证书（有效期内）",
				"最近一次管理体系内审或外审报告",
			}),
		},
		{
			Number:           2,
			Text:             "贵公司是否持有本行业要求的安全生产许可证？",
			DisqualifiesIfNo: true,
			EvidenceTrigger:  model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"安全生产许可证扫描件",
			}),
		},
		{
			Number:          3,
			Text:            "是否为全体作业人员配备并培训使用个人防护装备（PPE）？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"PPE 发放记录",
				"PPE 使用培训签到表或证明",
			}),
		},
		{
			Number:          4,
			Text:            "是否对新入职员工进行三级安全教育培训？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"近一年新员工安全教育培训记录",
			}),
		},
		{
			Number:          5,
			Text:            "是否定期组织全员应急演练（消防、疏散等）？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"最近一次应急演练方案",
				"演练记录及影像资料",
			}),
		},
		{
			Number:          6,
			Text:            "近三年内是否发生过记录在案的工伤或安全生产事故？",
			EvidenceTrigger: model.TriggerBoth,
			Requirements: model.MarshalRequirements([]string{
				"近三年事故台账或无事故证明",
			}),
		},
		{
			Number:          7,
			Text:            "是否为作业人员购买工伤保险及必要的商业意外险？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"工伤保险缴纳证明",
			}),
		},
		{
			Number:          8,
			Text:            "特种作业人员（电工、焊工、高处作业等）是否全部持证上岗？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"特种作业人员操作证清单及证书扫描件",
			}),
		},
		{
			Number:          9,
			Text:            "是否建立了危险源辨识与风险评估制度并定期更新？",
			EvidenceTrigger: model.TriggerYes,
			Requirements: model.MarshalRequirements([]string{
				"最新版危险源辨识与风险评估报告",
			}),
		},
		{
			Number:          10,
			Text:            "贵公司是否愿意接受委托方的现场安全检查与审核？",
			EvidenceTrigger: model.TriggerNone,
		},
	}
}
