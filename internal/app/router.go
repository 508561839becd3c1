package app

import (
	"vendor_vet_backend/docs"
	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/middleware"
	"vendor_vet_backend/internal/model"

	"vendor_vet_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerRespondentRoutes(authGroup, c)
		a.registerAuditorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerRespondentRoutes 供应商（被审核方）侧：访谈推进与材料提交
func (a *App) registerRespondentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.PUT("/profile/password", c.user.ChangePassword)

	interview := rg.Group("/interview")
	{
		interview.POST("/session", c.interview.CreateSession)
		interview.GET("/session", c.interview.GetSession)
		interview.POST("/answers", c.interview.SubmitAnswer)
		interview.POST("/revise", c.interview.Revise)
		interview.POST("/score", c.interview.Score)

		requirement := interview.Group("/questions/:number/requirements/:idx")
		{
			requirement.POST("/file", c.evidence.UploadFile)
			requirement.POST("/justification", c.evidence.SubmitJustification)
			requirement.POST("/skip", c.evidence.Skip)
			requirement.POST("/resolve", c.evidence.Resolve)
			requirement.POST("/retry", c.evidence.RetryReview)
			requirement.POST("/auditor-file", c.evidence.AttachAuditorFile)
		}
	}
}

// registerAuditorRoutes 审核员侧：作答浏览、访谈记录、评分覆写台账
func (a *App) registerAuditorRoutes(rg *gin.RouterGroup, c *controllers) {
	auditor := rg.Group("/auditor")
	auditor.Use(middleware.RoleMiddleware(model.Auditor))
	{
		auditor.GET("/answers", c.audit.ListAnswers)
		auditor.GET("/corrections", c.audit.ListCorrections)
		auditor.POST("/corrections", c.audit.RecordCorrection)
		auditor.GET("/respondents/:respondentId/transcript", c.audit.GetTranscript)
	}
}

// registerAdminRoutes 管理员侧：账号管理
func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.PUT("/users/:id/role", c.user.SetRole)
		admin.PUT("/users/:id/disabled", c.user.SetDisabled)
	}
}
