// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"pitchlab-server/internal/model"
)

// 点子列表的排序方式
const (
	IdeaSortByScore  = "score"  // 按票数倒序
	IdeaSortByRecent = "recent" // 按创建时间倒序
)

// IdeaRepository 点子数据访问层
// 负责点子相关的所有数据库操作
type IdeaRepository struct {
	db *gorm.DB
}

// NewIdeaRepository 创建 IdeaRepository 实例
func NewIdeaRepository(db *gorm.DB) *IdeaRepository {
	return &IdeaRepository{db: db}
}

// Create 创建新点子
// Score 使用数据库默认值 0
// 参数:
//   - ctx: 上下文
//   - idea: 点子对象，ID 和时间字段会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *IdeaRepository) Create(ctx context.Context, idea *model.Idea) error {
	return r.db.WithContext(ctx).Create(idea).Error
}

// GetByID 根据 ID 获取点子
// 参数:
//   - ctx: 上下文
//   - id: 点子ID
//
// 返回:
//   - *model.Idea: 点子对象，未找到返回 nil
//   - error: 数据库错误
func (r *IdeaRepository) GetByID(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := r.db.WithContext(ctx).First(&idea, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &idea, nil
}

// GetByIDWithUser 根据 ID 获取点子及其创建者
// 广播和详情接口需要携带创建者的显示名称
// 参数:
//   - ctx: 上下文
//   - id: 点子ID
//
// 返回:
//   - *model.Idea: 包含 User 字段的点子对象，未找到返回 nil
//   - error: 数据库错误
func (r *IdeaRepository) GetByIDWithUser(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := r.db.WithContext(ctx).Preload("User").Preload("Votes").First(&idea, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &idea, nil
}

// ListByRoomID 获取房间的所有点子
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - sortBy: 排序方式，score（按票数）或 recent（按时间）
//
// 返回:
//   - []model.Idea: 点子列表（含创建者和投票）
//   - error: 数据库错误
func (r *IdeaRepository) ListByRoomID(ctx context.Context, roomID int64, sortBy string) ([]model.Idea, error) {
	order := "score DESC, created_at DESC"
	if sortBy == IdeaSortByRecent {
		order = "created_at DESC"
	}

	var ideas []model.Idea
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Votes").
		Where("room_id = ?", roomID).
		Order(order).
		Find(&ideas).Error
	return ideas, err
}

// UpdateScore 写回点子的缓存票数
// 只更新 score 字段，由投票聚合器在全量重算后调用
// 参数:
//   - ctx: 上下文
//   - id: 点子ID
//   - score: 重算后的票数总和
//
// 返回:
//   - error: 数据库错误
func (r *IdeaRepository) UpdateScore(ctx context.Context, id int64, score int) error {
	return r.db.WithContext(ctx).
		Model(&model.Idea{}).
		Where("id = ?", id).
		Update("score", score).Error
}
