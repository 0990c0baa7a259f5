// Package response 提供统一的 HTTP 响应格式
// 所有 API 都使用相同的响应结构，便于前端处理
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
// code: 业务状态码（0 表示成功）
// message: 提示信息
// data: 响应数据
type Response struct {
	Code    int         `json:"code"`             // 业务状态码
	Message string      `json:"message"`          // 提示信息
	Data    interface{} `json:"data,omitempty"`   // 响应数据，可选
	Errors  interface{} `json:"errors,omitempty"` // 字段级校验错误，可选
}

// 业务状态码定义
const (
	CodeSuccess       = 0    // 成功
	CodeBadRequest    = 1000 // 请求参数错误
	CodeUnauthorized  = 1001 // 未授权
	CodeForbidden     = 1002 // 禁止访问
	CodeNotFound      = 1003 // 资源不存在
	CodeInternalError = 1004 // 服务器内部错误
	CodeEmailTaken    = 1101 // 邮箱已被注册
	CodeUserNotFound  = 1102 // 用户不存在
	CodeBadCredential = 1103 // 邮箱或密码错误
	CodeRoomNotFound  = 1201 // 房间不存在
	CodeIdeaNotFound  = 1301 // 点子不存在
	CodeBadVoteValue  = 1302 // 投票值超出范围
)

// Success 返回成功响应
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，可以是任意类型
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 返回成功响应（带自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 返回 201 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "创建成功",
		Data:    data,
	})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeBadRequest,
		Message: message,
	})
}

// ValidationFailed 返回 400 错误并携带字段级校验信息
// 参数:
//   - c: Gin 上下文
//   - message: 总体错误信息
//   - fields: 字段到错误原因的映射
func ValidationFailed(c *gin.Context, message string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeBadRequest,
		Message: message,
		Errors:  fields,
	})
}

// Unauthorized 返回 401 错误（未授权）
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

// Forbidden 返回 403 错误（禁止访问）
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{
		Code:    CodeForbidden,
		Message: message,
	})
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Code:    CodeNotFound,
		Message: message,
	})
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:    CodeInternalError,
		Message: message,
	})
}

// EmailTaken 返回邮箱已被注册错误
func EmailTaken(c *gin.Context) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeEmailTaken,
		Message: "邮箱已被注册",
	})
}

// UserNotFound 返回用户不存在错误
func UserNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Code:    CodeUserNotFound,
		Message: "用户不存在",
	})
}

// BadCredential 返回凭据错误
// 不区分"用户不存在"和"密码错误"，避免泄露账号是否存在
func BadCredential(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeBadCredential,
		Message: "邮箱或密码错误",
	})
}

// RoomNotFound 返回房间不存在错误
func RoomNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Code:    CodeRoomNotFound,
		Message: "房间不存在",
	})
}

// IdeaNotFound 返回点子不存在错误
func IdeaNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Code:    CodeIdeaNotFound,
		Message: "点子不存在",
	})
}

// BadVoteValue 返回投票值超出范围错误
func BadVoteValue(c *gin.Context) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeBadVoteValue,
		Message: "投票值必须是 -1、0 或 1",
	})
}
