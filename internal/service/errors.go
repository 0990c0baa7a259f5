// Package service 实现业务逻辑层
// 所有写路径（HTTP 和 WebSocket）都汇聚到这一层，保证两条入口的行为完全一致
package service

import "errors"

// 业务错误定义
// 服务层只返回这些哨兵错误，由 HTTP 层映射为状态码，WebSocket 层记录日志
var (
	ErrRoomNotFound       = errors.New("房间不存在")
	ErrIdeaNotFound       = errors.New("点子不存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidVoteValue   = errors.New("投票值必须是 -1、0 或 1")
	ErrInvalidRole        = errors.New("无效的消息角色")
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
)
