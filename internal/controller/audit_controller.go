package controller

import (
	"strconv"

	"vendor_vet_backend/internal/service"
	"vendor_vet_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuditController struct {
	Audit *service.AuditService
}

func NewAuditController(audit *service.AuditService) *AuditController {
	return &AuditController{Audit: audit}
}

// ListAnswers godoc
// @Summary 浏览全部作答
// @Description 审核员分页浏览所有供应商的作答，可按姓名/邮箱/公司搜索
// @Tags 审核
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码，默认 1"
// @Param   limit query int false "每页数量，默认 20"
// @Param   search query string false "搜索关键字"
// @Success 200 {object} util.Response{data=object} "作答列表"
// @Failure 403 {object} util.Response "无审核权限"
// @Router /api/auditor/answers [get]
func (c *AuditController) ListAnswers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, total, err := c.Audit.ListAnswers(ctx.Request.Context(), page, limit, ctx.Query("search"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"answers": rows,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// ListCorrections godoc
// @Summary 查看覆写台账
// @Description 按时间倒序列出评分覆写记录，可按供应商过滤
// @Tags 审核
// @Produce  json
// @Security BearerAuth
// @Param   respondentId query int false "供应商账号 ID"
// @Success 200 {object} util.Response{data=[]model.AuditorCorrection} "覆写记录"
// @Failure 403 {object} util.Response "无审核权限"
// @Router /api/auditor/corrections [get]
func (c *AuditController) ListCorrections(ctx *gin.Context) {
	var respondentID uint
	if raw := ctx.Query("respondentId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			util.BadRequest(ctx, "respondentId 不合法")
			return
		}
		respondentID = uint(id)
	}

	corrs, err := c.Audit.ListCorrections(ctx.Request.Context(), respondentID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, corrs)
}

// RecordCorrection godoc
// @Summary 记录评分覆写
// @Description 审核员对某题评分做出覆写，覆写分与备注理由缺一不可。
// @Description 记录只追加，不修改历史；同一题以最新一条为准。
// @Tags 审核
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CorrectionInput true "覆写内容"
// @Success 201 {object} util.Response{data=model.AuditorCorrection} "创建成功"
// @Failure 400 {object} util.Response "缺少覆写分或备注"
// @Failure 403 {object} util.Response "无审核权限"
// @Router /api/auditor/corrections [post]
func (c *AuditController) RecordCorrection(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var in service.CorrectionInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	corr, err := c.Audit.RecordCorrection(ctx.Request.Context(), claims.UserID, in)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, corr)
}

// GetTranscript godoc
// @Summary 导出访谈记录
// @Description 按题库顺序返回某供应商的完整作答与全部材料提交记录
// @Tags 审核
// @Produce  json
// @Security BearerAuth
// @Param   respondentId path int true "供应商账号 ID"
// @Success 200 {object} util.Response{data=object} "访谈记录"
// @Failure 404 {object} util.Response "该供应商没有会话"
// @Router /api/auditor/respondents/{respondentId}/transcript [get]
func (c *AuditController) GetTranscript(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("respondentId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "respondentId 不合法")
		return
	}

	transcript, evidence, err := c.Audit.GetTranscript(ctx.Request.Context(), uint(id))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"transcript": transcript,
		"evidence":   evidence,
	})
}
