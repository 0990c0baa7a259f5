// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"pitchlab-server/internal/model"
)

// RoomWithCounts 房间及其消息、点子数量
// 列表接口用它一次性取回计数，避免逐个房间再查
type RoomWithCounts struct {
	model.Room
	MessageCount int64 `json:"message_count"` // 消息数量
	IdeaCount    int64 `json:"idea_count"`    // 点子数量
}

// RoomRepository 房间数据访问层
// 负责房间相关的所有数据库操作
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建 RoomRepository 实例
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create 创建新房间
// 参数:
//   - ctx: 上下文
//   - room: 房间对象，ID 和时间字段会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// GetByID 根据 ID 获取房间
// 参数:
//   - ctx: 上下文
//   - id: 房间ID
//
// 返回:
//   - *model.Room: 房间对象，未找到返回 nil
//   - error: 数据库错误
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// GetByIDWithCounts 根据 ID 获取房间及其计数
// 参数:
//   - ctx: 上下文
//   - id: 房间ID
//
// 返回:
//   - *RoomWithCounts: 带计数的房间对象，未找到返回 nil
//   - error: 数据库错误
func (r *RoomRepository) GetByIDWithCounts(ctx context.Context, id int64) (*RoomWithCounts, error) {
	var room RoomWithCounts
	err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Select("rooms.*, " +
			"(SELECT COUNT(*) FROM messages WHERE messages.room_id = rooms.id) AS message_count, " +
			"(SELECT COUNT(*) FROM ideas WHERE ideas.room_id = rooms.id) AS idea_count").
		Where("rooms.id = ?", id).
		Take(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// ListWithCounts 获取所有房间及其计数
// 按创建时间倒序排列（最新的在前）
// 参数:
//   - ctx: 上下文
//
// 返回:
//   - []RoomWithCounts: 房间列表
//   - error: 数据库错误
func (r *RoomRepository) ListWithCounts(ctx context.Context) ([]RoomWithCounts, error) {
	var rooms []RoomWithCounts
	// 用子查询一次取回计数，避免 N+1 查询
	err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Select("rooms.*, " +
			"(SELECT COUNT(*) FROM messages WHERE messages.room_id = rooms.id) AS message_count, " +
			"(SELECT COUNT(*) FROM ideas WHERE ideas.room_id = rooms.id) AS idea_count").
		Order("rooms.created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// Exists 检查房间是否存在
// 参数:
//   - ctx: 上下文
//   - id: 房间ID
//
// 返回:
//   - bool: 是否存在
//   - error: 数据库错误
func (r *RoomRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Room{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
