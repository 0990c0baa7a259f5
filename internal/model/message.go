// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 助手消息
)

// Message 消息模型
// 对应数据库表 messages
// 消息创建后不可修改，不支持编辑和删除
type Message struct {
	// ID 消息唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// RoomID 所属房间ID，外键关联 rooms.id
	RoomID int64 `gorm:"index;not null" json:"room_id"`

	// UserID 发送者ID，外键关联 users.id
	// AI 助手消息的发送者是固定的助手用户
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// Role 消息角色
	// user: 用户发送的消息
	// assistant: AI 助手生成的消息
	Role string `gorm:"size:20;not null;default:user" json:"role"`

	// Content 消息内容
	// 使用 TEXT 类型存储，可以存储较长的内容
	Content string `gorm:"type:text;not null" json:"content"`

	// CreatedAt 消息创建时间
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// User 发送者（多对一关系）
	// 广播时需要携带发送者的显示名称
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Room 所属房间（多对一关系）
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
