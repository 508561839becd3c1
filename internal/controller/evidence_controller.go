package controller

import (
	"strconv"

	"vendor_vet_backend/internal/service"
	"vendor_vet_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EvidenceController struct {
	Evidence *service.EvidenceService
}

func NewEvidenceController(evidence *service.EvidenceService) *EvidenceController {
	return &EvidenceController{Evidence: evidence}
}

// UploadFile godoc
// @Summary 上传证明材料
// @Description 为当前等待的材料要求上传文件，存储成功后自动送审阅。
// @Description 审阅服务不可用时返回 502，文件已保存，可调用 retry 重试。
// @Tags 材料
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Param   file formData file true "证明材料文件"
// @Success 200 {object} util.Response{data=model.EvidenceSubmission} "附带审阅反馈的提交记录"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 409 {object} util.Response "该要求当前不接受提交"
// @Failure 502 {object} util.Response "审阅服务不可用"
// @Router /api/interview/questions/{number}/requirements/{idx}/file [post]
func (c *EvidenceController) UploadFile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少 file 字段")
		return
	}

	probe, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	contentType, err := util.ValidateMimeType(probe, util.AllowedEvidenceMimeTypes)
	probe.Close()
	if err != nil {
		util.BadRequest(ctx, "不支持的文件类型: "+contentType)
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	sub, err := c.Evidence.SubmitFile(ctx.Request.Context(), claims.UserID, service.FileSubmission{
		QuestionNumber:   number,
		RequirementIndex: idx,
		FileName:         header.Filename,
		Reader:           file,
		Size:             header.Size,
		ContentType:      contentType,
		RespondentEmail:  claims.Email,
	})
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// JustificationRequest 材料缺失说明
// swagger:model JustificationRequest
type JustificationRequest struct {
	Text string `json:"text" binding:"required"`
}

// SubmitJustification godoc
// @Summary 提交材料缺失说明
// @Description 说明为何无法提供该材料，说明文本会送自动评估
// @Tags 材料
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Param   body body JustificationRequest true "说明文本"
// @Success 200 {object} util.Response{data=model.EvidenceSubmission} "附带评估反馈的提交记录"
// @Failure 400 {object} util.Response "说明为空"
// @Failure 409 {object} util.Response "该要求当前不接受提交"
// @Failure 502 {object} util.Response "评估服务不可用"
// @Router /api/interview/questions/{number}/requirements/{idx}/justification [post]
func (c *EvidenceController) SubmitJustification(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	var req JustificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Evidence.SubmitJustification(ctx.Request.Context(), claims.UserID, number, idx, req.Text, claims.Email)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// SkipRequest 跳过当前材料要求
// swagger:model SkipRequest
type SkipRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// Skip godoc
// @Summary 跳过当前材料要求
// @Description 带备注跳过，要求直接升级给人工审核，访谈继续推进
// @Tags 材料
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Param   body body SkipRequest true "跳过备注"
// @Success 200 {object} util.Response{data=service.SessionView} "推进后的会话状态"
// @Failure 400 {object} util.Response "备注为空"
// @Failure 409 {object} util.Response "该要求当前不接受提交"
// @Router /api/interview/questions/{number}/requirements/{idx}/skip [post]
func (c *EvidenceController) Skip(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	var req SkipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Evidence.Skip(ctx.Request.Context(), claims.UserID, number, idx, req.Comment)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ResolveRequest 对审阅反馈做出的决定
// swagger:model ResolveRequest
type ResolveRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept escalate"`
}

// Resolve godoc
// @Summary 处理审阅反馈
// @Description 对自动审阅反馈做出决定：接受材料，或升级人工审核
// @Tags 材料
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Param   body body ResolveRequest true "accept 或 escalate"
// @Success 200 {object} util.Response{data=service.SessionView} "推进后的会话状态"
// @Failure 400 {object} util.Response "决定不合法"
// @Failure 409 {object} util.Response "没有待处理的审阅反馈"
// @Router /api/interview/questions/{number}/requirements/{idx}/resolve [post]
func (c *EvidenceController) Resolve(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Evidence.Resolve(ctx.Request.Context(), claims.UserID, number, idx, req.Decision)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// RetryReview godoc
// @Summary 重试自动审阅
// @Description 审阅外呼失败后重试，复用已保存的文件或说明
// @Tags 材料
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Success 200 {object} util.Response{data=model.EvidenceSubmission} "附带审阅反馈的提交记录"
// @Failure 409 {object} util.Response "没有等待审阅的提交"
// @Failure 502 {object} util.Response "审阅服务不可用"
// @Router /api/interview/questions/{number}/requirements/{idx}/retry [post]
func (c *EvidenceController) RetryReview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	sub, err := c.Evidence.RetryReview(ctx.Request.Context(), claims.UserID, number, idx, claims.Email)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// AttachAuditorFile godoc
// @Summary 补交人工审核附件
// @Description 为已升级的要求补交一个附加文件，供人工审核参考。
// @Description 不限会话当前进度，但同一要求只允许补交一次。
// @Tags 材料
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   number path int true "题号"
// @Param   idx path int true "要求序号"
// @Param   file formData file true "附加文件"
// @Success 200 {object} util.Response{data=model.EvidenceSubmission} "更新后的提交记录"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 409 {object} util.Response "该要求未升级或已补交过附件"
// @Router /api/interview/questions/{number}/requirements/{idx}/auditor-file [post]
func (c *EvidenceController) AttachAuditorFile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	number, idx, ok := pathIndices(ctx)
	if !ok {
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少 file 字段")
		return
	}

	probe, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	contentType, err := util.ValidateMimeType(probe, util.AllowedEvidenceMimeTypes)
	probe.Close()
	if err != nil {
		util.BadRequest(ctx, "不支持的文件类型: "+contentType)
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	sub, err := c.Evidence.AttachAuditorFile(ctx.Request.Context(), claims.UserID, number, idx, header.Filename, file, header.Size, contentType)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// pathIndices 解析路径中的题号与要求序号
func pathIndices(ctx *gin.Context) (int, int, bool) {
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		util.BadRequest(ctx, "题号不合法")
		return 0, 0, false
	}
	idx, err := strconv.Atoi(ctx.Param("idx"))
	if err != nil || idx < 0 {
		util.BadRequest(ctx, "要求序号不合法")
		return 0, 0, false
	}
	return number, idx, true
}
