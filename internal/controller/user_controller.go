package controller

import (
	"strconv"

	"vendor_vet_backend/internal/model"
	"vendor_vet_backend/internal/service"
	"vendor_vet_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 账号列表
// @Description 管理员分页查看账号，可按角色过滤、按关键字搜索
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码，默认 1"
// @Param   limit query int false "每页数量，默认 20"
// @Param   role query string false "角色过滤"
// @Param   search query string false "搜索关键字"
// @Success 200 {object} util.Response{data=object} "账号列表"
// @Failure 403 {object} util.Response "无管理权限"
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := c.UserService.GetUsers(page, limit, ctx.Query("role"), ctx.Query("search"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// UpdateProfile godoc
// @Summary 更新本人资料
// @Description 以补丁方式更新姓名/公司/电话，返回更新后的账号
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.ProfilePatch true "资料补丁"
// @Success 200 {object} util.Response{data=model.User} "更新后的账号"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var patch service.ProfilePatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, patch)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ChangePasswordRequest 修改密码请求
// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword godoc
// @Summary 修改密码
// @Description 验证旧密码后更新为新密码
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body ChangePasswordRequest true "新旧密码"
// @Success 200 {object} util.Response "修改成功"
// @Failure 400 {object} util.Response "旧密码错误"
// @Router /api/profile/password [put]
func (c *UserController) ChangePassword(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.ChangePassword(claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "密码已更新"})
}

// SetRoleRequest 调整角色请求
// swagger:model SetRoleRequest
type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=respondent auditor admin"`
}

// SetRole godoc
// @Summary 调整账号角色
// @Description 管理员调整指定账号的角色
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "账号 ID"
// @Param   body body SetRoleRequest true "目标角色"
// @Success 200 {object} util.Response{data=model.User} "更新后的账号"
// @Failure 403 {object} util.Response "无管理权限"
// @Failure 404 {object} util.Response "账号不存在"
// @Router /api/admin/users/{id}/role [put]
func (c *UserController) SetRole(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "账号 ID 不合法")
		return
	}

	var req SetRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.SetRole(uint(id), model.UserRole(req.Role))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// SetDisabledRequest 停用/启用请求
// swagger:model SetDisabledRequest
type SetDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// SetDisabled godoc
// @Summary 停用或启用账号
// @Description 被停用的账号无法登录
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "账号 ID"
// @Param   body body SetDisabledRequest true "停用标志"
// @Success 200 {object} util.Response "设置成功"
// @Failure 403 {object} util.Response "无管理权限"
// @Failure 404 {object} util.Response "账号不存在"
// @Router /api/admin/users/{id}/disabled [put]
func (c *UserController) SetDisabled(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "账号 ID 不合法")
		return
	}

	var req SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(uint(id), *req.Disabled); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"disabled": *req.Disabled})
}
