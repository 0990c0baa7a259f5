// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// User 用户模型
// 对应数据库表 users
// 既包括注册用户（有邮箱和密码），也包括只提供昵称的访客用户
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name 显示名称
	// 访客用户用它来识别身份，注册用户用它在房间内展示
	Name string `gorm:"size:100;not null;index" json:"name"`

	// Email 用户邮箱，注册用户必填，访客为 NULL
	// 使用指针类型表示可以为 NULL
	Email *string `gorm:"size:100;uniqueIndex" json:"email,omitempty"`

	// PasswordHash 密码的 bcrypt 哈希值，访客用户为空
	// 永远不要存储明文密码！
	PasswordHash string `gorm:"size:255" json:"-"` // json:"-" 表示序列化时忽略此字段

	// IsGuest 是否为访客用户
	// 访客只提供昵称，不设置邮箱和密码
	IsGuest bool `gorm:"default:false;index" json:"is_guest"`

	// CreatedAt 创建时间，由 GORM 自动填充
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间，由 GORM 自动更新
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
// GORM 会使用这个方法返回的表名，而不是默认的复数形式
func (User) TableName() string {
	return "users"
}

// PublicUser 对外暴露的用户信息
// 广播事件和接口响应中只携带这三个字段，凭据信息永远不出内层
type PublicUser struct {
	ID      int64  `json:"id"`       // 用户 ID
	Name    string `json:"name"`     // 显示名称
	IsGuest bool   `json:"is_guest"` // 是否为访客
}

// Public 返回用户的公开视图
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:      u.ID,
		Name:    u.Name,
		IsGuest: u.IsGuest,
	}
}
