package controller

import (
	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/service"
	"vendor_vet_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type InterviewController struct {
	Interview *service.InterviewService
}

func NewInterviewController(interview *service.InterviewService) *InterviewController {
	return &InterviewController{Interview: interview}
}

// CreateSession godoc
// @Summary 开始或恢复访谈
// @Description 首次调用创建会话，再次调用返回同一会话的当前状态
// @Tags 访谈
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SessionView} "当前会话状态"
// @Failure 401 {object} util.Response "未登录"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/interview/session [post]
func (c *InterviewController) CreateSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Interview.CreateOrResume(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetSession godoc
// @Summary 查看会话状态
// @Description 返回当前会话状态与作答历史，不触发任何状态变化
// @Tags 访谈
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SessionView} "当前会话状态"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/interview/session [get]
func (c *InterviewController) GetSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Interview.GetSession(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// AnswerRequest 作答请求
// swagger:model AnswerRequest
type AnswerRequest struct {
	QuestionNumber int    `json:"questionNumber" binding:"required"`
	Value          string `json:"value" binding:"required"`
}

// SubmitAnswer godoc
// @Summary 回答当前题目
// @Description 对当前题目提交 yes/no 作答，按题库规则推进会话
// @Tags 访谈
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body AnswerRequest true "作答"
// @Success 200 {object} util.Response{data=service.SessionView} "推进后的会话状态"
// @Failure 400 {object} util.Response "作答不合法"
// @Failure 409 {object} util.Response "当前状态不接受作答"
// @Router /api/interview/answers [post]
func (c *InterviewController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Interview.SubmitAnswer(ctx.Request.Context(), claims.UserID, req.QuestionNumber, model.AnswerValue(req.Value))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ReviseRequest 修订请求
// swagger:model ReviseRequest
type ReviseRequest struct {
	QuestionNumber int `json:"questionNumber" binding:"required"`
}

// Revise godoc
// @Summary 修订历史作答
// @Description 回退到指定题目重新作答，该题及之后的作答与材料记录全部作废
// @Tags 访谈
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body ReviseRequest true "要修订的题号"
// @Success 200 {object} util.Response{data=service.SessionView} "回退后的会话状态"
// @Failure 400 {object} util.Response "题号不合法"
// @Failure 409 {object} util.Response "当前状态不允许修订"
// @Router /api/interview/revise [post]
func (c *InterviewController) Revise(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ReviseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Interview.Revise(ctx.Request.Context(), claims.UserID, req.QuestionNumber)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Score godoc
// @Summary 提交评分
// @Description 全部题目完成后调用评分服务，结果写入会话。评分服务
// @Description 不可用时返回 502，可稍后重试。
// @Tags 访谈
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ScoringResult} "评分结果"
// @Failure 409 {object} util.Response "会话尚未完成全部题目"
// @Failure 502 {object} util.Response "评分服务不可用"
// @Router /api/interview/score [post]
func (c *InterviewController) Score(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Interview.FinalizeAndScore(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
