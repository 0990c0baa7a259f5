// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// 投票值的取值范围
const (
	VoteValueDown = -1 // 反对
	VoteValueNone = 0  // 撤回
	VoteValueUp   = 1  // 赞成
)

// Vote 投票模型
// 对应数据库表 votes
// (user_id, idea_id) 上有唯一索引：同一用户对同一点子最多一行，
// 再次投票是覆盖值而不是追加新行，数据库是并发写入的唯一仲裁者
type Vote struct {
	// ID 投票唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 投票用户ID，外键关联 users.id
	UserID int64 `gorm:"not null;uniqueIndex:idx_votes_user_idea" json:"user_id"`

	// IdeaID 目标点子ID，外键关联 ideas.id
	IdeaID int64 `gorm:"not null;uniqueIndex:idx_votes_user_idea;index" json:"idea_id"`

	// Value 投票值，取值 -1 / 0 / 1
	// 取值范围由服务层校验，数据库只保证唯一性
	Value int `gorm:"not null" json:"value"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间（覆盖投票值时刷新）
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Vote) TableName() string {
	return "votes"
}
