// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"pitchlab-server/internal/service"
	"pitchlab-server/pkg/response"
)

// AuthHandler 认证请求处理器
// 处理注册、登录、访客进入、Token 刷新和登出
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRequest 注册请求参数
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest 登录请求参数
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// IdentifyRequest 访客进入请求参数
type IdentifyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// RefreshRequest 刷新 Token 请求参数
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 使用邮箱和密码注册新用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "注册信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	// 1. 解析请求参数
	var req RegisterRequest
	// ShouldBindJSON 会自动验证 binding 标签中的规则
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. 调用服务层处理注册
	result, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		// 根据错误类型返回不同的响应
		switch err {
		case service.ErrEmailTaken:
			response.EmailTaken(c)
		default:
			response.InternalError(c, "注册失败")
		}
		return
	}

	// 3. 返回成功响应
	response.SuccessWithMessage(c, "注册成功", result)
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用邮箱和密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body LoginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			response.BadCredential(c)
		default:
			response.InternalError(c, "登录失败")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", result)
}

// Identify 访客进入
// @Summary 访客进入
// @Description 只提供昵称即可获得身份，同名访客复用同一账号
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body IdentifyRequest true "访客昵称"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/auth/identify [post]
func (h *AuthHandler) Identify(c *gin.Context) {
	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authService.Identify(c.Request.Context(), req.Name)
	if err != nil {
		response.InternalError(c, "访客进入失败")
		return
	}

	response.SuccessWithMessage(c, "欢迎进入", result)
}

// Refresh 刷新 Token
// @Summary 刷新 Token
// @Description 使用 Refresh Token 获取新的 Token 对
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh Token"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "Refresh Token 无效或已过期")
		return
	}

	response.Success(c, result)
}

// Logout 用户登出
// @Summary 用户登出
// @Description 登出当前用户，将 Token 加入黑名单
// @Tags 认证
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// 从上下文获取 Token 信息（由认证中间件设置）
	token, exists := c.Get("token")
	if !exists {
		response.BadRequest(c, "无法获取 Token 信息")
		return
	}

	expireAt, exists := c.Get("token_exp")
	if !exists {
		response.BadRequest(c, "无法获取 Token 过期时间")
		return
	}

	// 将 Token 加入黑名单，使它在原本过期之前就失效
	if err := h.authService.Logout(c.Request.Context(), token.(string), expireAt.(time.Time)); err != nil {
		response.InternalError(c, "登出失败")
		return
	}

	response.SuccessWithMessage(c, "登出成功", nil)
}

// GetMe 获取当前用户信息
// @Summary 当前用户
// @Description 返回 Token 对应的用户信息
// @Tags 认证
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=model.PublicUser}
// @Router /api/users/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := c.GetInt64("user_id")

	user, err := h.authService.GetMe(c.Request.Context(), userID)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			response.UserNotFound(c)
		default:
			response.InternalError(c, "查询用户失败")
		}
		return
	}

	response.Success(c, user.Public())
}
