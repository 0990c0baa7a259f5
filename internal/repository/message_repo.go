// Package repository 提供数据访问层的实现
package repository

import (
	"context"

	"gorm.io/gorm"
	"pitchlab-server/internal/model"
)

// MessageRepository 消息数据访问层
// 负责消息相关的所有数据库操作
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建新消息
// 参数:
//   - ctx: 上下文
//   - message: 消息对象，ID 和 CreatedAt 会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByRoomCursor 游标分页获取房间的消息
// 按 ID 倒序扫描（最新的在前），cursor 为上一页最后一条消息的 ID，
// 传 0 表示从最新的开始。多取一条来探测是否还有下一页。
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - cursor: 游标（上一页最后一条消息的 ID），0 表示第一页
//   - limit: 每页数量
//
// 返回:
//   - []model.Message: 消息列表（倒序，最新的在前）
//   - bool: 是否还有更早的消息
//   - error: 数据库错误
func (r *MessageRepository) ListByRoomCursor(ctx context.Context, roomID, cursor int64, limit int) ([]model.Message, bool, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID)
	if cursor > 0 {
		// ID 自增，所以 id < cursor 就是"比游标更早的消息"
		query = query.Where("id < ?", cursor)
	}

	var messages []model.Message
	// 多取一条用于判断 hasMore，真正返回时再截掉
	err := query.
		Order("id DESC").
		Limit(limit + 1).
		Find(&messages).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	return messages, hasMore, nil
}

// GetLatestByRoomID 获取房间的最新 N 条消息
// 用于 AI 生成时的上下文，返回按时间正序排列
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - limit: 要获取的消息数量
//
// 返回:
//   - []model.Message: 消息列表（按时间正序）
//   - error: 数据库错误
func (r *MessageRepository) GetLatestByRoomID(ctx context.Context, roomID int64, limit int) ([]model.Message, error) {
	var messages []model.Message

	// 子查询：先按 ID 倒序取最新的 N 条
	// 然后外层查询再按 ID 正序排列
	// 这样可以得到最新的 N 条消息，且顺序正确
	subQuery := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit)

	err := r.db.WithContext(ctx).
		Table("(?) as t", subQuery).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// 手动补上发送者信息（子查询表上无法使用 Preload）
	if err := r.attachUsers(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// attachUsers 为一批消息补上发送者对象
func (r *MessageRepository) attachUsers(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	// 收集去重后的用户 ID
	idSet := make(map[int64]struct{}, len(messages))
	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		if _, ok := idSet[m.UserID]; !ok {
			idSet[m.UserID] = struct{}{}
			ids = append(ids, m.UserID)
		}
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return err
	}

	byID := make(map[int64]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range messages {
		messages[i].User = byID[messages[i].UserID]
	}
	return nil
}
