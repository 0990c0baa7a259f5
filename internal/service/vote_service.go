// Package service 实现业务逻辑层
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
)

// VoteService 投票聚合器
// 所有投票写入的唯一入口：先覆盖写投票行，再全量重算票数并写回点子。
// 重算永远基于 SUM(value) 而不是增量加减，所以任何乱序、重复的写入
// 最终都会收敛到真实总和
type VoteService struct {
	ideas IdeaStore
	votes VoteStore
	log   *logrus.Entry
}

// NewVoteService 创建 VoteService 实例
func NewVoteService(ideas IdeaStore, votes VoteStore) *VoteService {
	return &VoteService{
		ideas: ideas,
		votes: votes,
		log:   logrus.WithField("module", "vote_service"),
	}
}

// Cast 投票（或改票、撤回）
// value 为 1 赞成、-1 反对、0 撤回。同一用户重复投相同的值是幂等操作，
// 票数不变。
// 参数:
//   - ctx: 上下文
//   - userID: 投票用户ID
//   - ideaID: 目标点子ID
//   - value: 投票值，取值 -1 / 0 / 1
//
// 返回:
//   - *model.Idea: 携带重算后票数的点子
//   - *model.Vote: 本次写入的投票行
//   - error: 业务错误或数据库错误
func (s *VoteService) Cast(ctx context.Context, userID, ideaID int64, value int) (*model.Idea, *model.Vote, error) {
	// 取值范围校验先于一切数据库操作
	if value < model.VoteValueDown || value > model.VoteValueUp {
		return nil, nil, ErrInvalidVoteValue
	}

	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询点子失败: %w", err)
	}
	if idea == nil {
		return nil, nil, ErrIdeaNotFound
	}

	// 覆盖写：并发写入由 (user_id, idea_id) 唯一索引仲裁
	vote := &model.Vote{
		UserID: userID,
		IdeaID: ideaID,
		Value:  value,
	}
	if err := s.votes.Upsert(ctx, vote); err != nil {
		return nil, nil, fmt.Errorf("写入投票失败: %w", err)
	}

	// 全量重算：无论刚才写入的是什么，都以当前所有投票行的总和为准
	score, err := s.votes.SumByIdeaID(ctx, ideaID)
	if err != nil {
		return nil, nil, fmt.Errorf("重算票数失败: %w", err)
	}
	if err := s.ideas.UpdateScore(ctx, ideaID, score); err != nil {
		return nil, nil, fmt.Errorf("写回票数失败: %w", err)
	}
	idea.Score = score

	// 回读投票行，拿到数据库填充的 ID 和时间戳
	stored, err := s.votes.GetByUserAndIdea(ctx, userID, ideaID)
	if err != nil {
		return nil, nil, fmt.Errorf("回读投票失败: %w", err)
	}
	if stored != nil {
		vote = stored
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"idea_id": ideaID,
		"value":   value,
		"score":   score,
	}).Debug("投票已聚合")

	return idea, vote, nil
}
