// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Room 房间模型
// 对应数据库表 rooms
// 一个房间是一组人共创点子的协作空间，拥有若干消息和点子
type Room struct {
	// ID 房间唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name 房间名称
	Name string `gorm:"size:100;not null" json:"name"`

	// Description 房间描述，可选
	Description *string `gorm:"size:500" json:"description,omitempty"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Messages 房间内的所有消息（一对多关系）
	Messages []Message `gorm:"foreignKey:RoomID" json:"messages,omitempty"`

	// Ideas 房间内的所有点子（一对多关系）
	Ideas []Idea `gorm:"foreignKey:RoomID" json:"ideas,omitempty"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}
