// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Idea 点子模型
// 对应数据库表 ideas
// 点子可以被房间内的成员投票排序
type Idea struct {
	// ID 点子唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// RoomID 所属房间ID，外键关联 rooms.id
	RoomID int64 `gorm:"index;not null" json:"room_id"`

	// UserID 创建者ID，外键关联 users.id
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// Title 点子标题
	Title string `gorm:"size:200;not null" json:"title"`

	// Description 点子描述，可选
	Description *string `gorm:"size:1000" json:"description,omitempty"`

	// Score 缓存的票数总和
	// 不是独立事实：必须始终等于该点子所有 Vote.Value 之和
	// 每次投票后由聚合器全量重算并写回
	Score int `gorm:"not null;default:0;index" json:"score"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// User 创建者（多对一关系）
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Votes 点子收到的所有投票（一对多关系）
	Votes []Vote `gorm:"foreignKey:IdeaID" json:"votes,omitempty"`
}

// TableName 指定表名
func (Idea) TableName() string {
	return "ideas"
}
