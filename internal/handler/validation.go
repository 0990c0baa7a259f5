// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"pitchlab-server/pkg/response"
)

// bindError 把请求体绑定失败转换成统一的错误响应
// 校验规则不通过时返回字段级明细，其余情况（JSON 解析失败等）按普通参数错误处理
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldErrorMessage(fe)
		}
		response.ValidationFailed(c, "请求参数校验失败", fields)
		return
	}
	response.BadRequest(c, "请求参数错误: "+err.Error())
}

// fieldErrorMessage 为常见的校验规则生成提示文案
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必填"
	case "email":
		return "不是合法的邮箱地址"
	case "min":
		return "长度不能小于 " + fe.Param()
	case "max":
		return "长度不能超过 " + fe.Param()
	default:
		return "不满足规则 " + fe.Tag()
	}
}
