// 手动巡检长期停留在待审阅状态的材料提交
//
// 该功能已集成到主应用的后台定时任务中（每 10 分钟自动执行一次）。
// 此脚本仅用于手动触发，例如审阅服务长时间不可用之后的人工排查。
//
// 用法: go run scripts/sweep_pending.go
package main

import (
	"log"
	"time"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	repo := repository.NewEvidenceRepository(db)
	subs, err := repo.ListStalePending(30 * time.Minute)
	if err != nil {
		log.Fatalf("查询失败: %v", err)
	}

	if len(subs) == 0 {
		log.Println("没有长期待审阅的材料提交")
		return
	}

	log.Printf("共 %d 条材料提交停留在待审阅状态超过 30 分钟:", len(subs))
	for _, s := range subs {
		log.Printf("  会话 %s 第 %d 题要求 %d（%s，提交于 %s）",
			s.SessionID, s.QuestionNumber, s.RequirementIndex, s.Kind, s.CreatedAt.Format(util.TimeFormat))
	}
}
