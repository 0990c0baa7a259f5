// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pitchlab-server/internal/model"
)

// VoteRepository 投票数据访问层
// 负责投票相关的所有数据库操作
type VoteRepository struct {
	db *gorm.DB
}

// NewVoteRepository 创建 VoteRepository 实例
func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Upsert 插入或覆盖投票
// 依赖 (user_id, idea_id) 上的唯一索引：已存在则只覆盖 value，
// 不存在则插入新行。并发写入由数据库的唯一约束仲裁，
// 应用层不加锁也不会产生重复行。
// 参数:
//   - ctx: 上下文
//   - vote: 投票对象（UserID、IdeaID、Value 必填）
//
// 返回:
//   - error: 数据库错误
func (r *VoteRepository) Upsert(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "idea_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(vote).Error
}

// GetByUserAndIdea 获取某用户对某点子的投票
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - ideaID: 点子ID
//
// 返回:
//   - *model.Vote: 投票对象，未找到返回 nil
//   - error: 数据库错误
func (r *VoteRepository) GetByUserAndIdea(ctx context.Context, userID, ideaID int64) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idea_id = ?", userID, ideaID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

// SumByIdeaID 全量求和某点子的所有投票值
// 聚合器每次写入后都调用它重算票数：不做增量加减，
// 任何一个写入方的重算结果都反映当时的真实总和
// 参数:
//   - ctx: 上下文
//   - ideaID: 点子ID
//
// 返回:
//   - int: 投票值总和（没有投票时为 0）
//   - error: 数据库错误
func (r *VoteRepository) SumByIdeaID(ctx context.Context, ideaID int64) (int, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("idea_id = ?", ideaID).
		Select("COALESCE(SUM(value), 0)").
		Scan(&sum).Error
	return int(sum), err
}
