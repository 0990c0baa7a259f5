// Package service 实现业务逻辑层
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
)

// RoomView 房间的对外视图，附带活跃程度指标
type RoomView struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	MessageCount int64     `json:"message_count"`
	IdeaCount    int64     `json:"idea_count"`
	OnlineCount  int64     `json:"online_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomService 房间服务
// 房间只增不删，没有成员资格的概念：任何登录用户都可以进入任何房间
type RoomService struct {
	rooms    RoomStore
	presence Presence
	log      *logrus.Entry
}

// NewRoomService 创建 RoomService 实例
// presence 允许为 nil，此时在线人数一律为 0
func NewRoomService(rooms RoomStore, presence Presence) *RoomService {
	return &RoomService{
		rooms:    rooms,
		presence: presence,
		log:      logrus.WithField("module", "room_service"),
	}
}

// CreateRoom 创建房间
func (s *RoomService) CreateRoom(ctx context.Context, name string, description *string) (*RoomView, error) {
	room := &model.Room{
		Name:        name,
		Description: description,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("写入房间失败: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"room_id": room.ID,
		"name":    room.Name,
	}).Info("房间已创建")

	return &RoomView{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	}, nil
}

// GetRoom 获取房间详情（含消息数、点子数、在线人数）
func (s *RoomService) GetRoom(ctx context.Context, id int64) (*RoomView, error) {
	room, err := s.rooms.GetByIDWithCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询房间失败: %w", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	view := &RoomView{
		ID:           room.ID,
		Name:         room.Name,
		Description:  room.Description,
		MessageCount: room.MessageCount,
		IdeaCount:    room.IdeaCount,
		CreatedAt:    room.CreatedAt,
	}
	view.OnlineCount = s.onlineCount(ctx, room.ID)
	return view, nil
}

// ListRooms 获取房间列表（最新创建的在前）
func (s *RoomService) ListRooms(ctx context.Context) ([]*RoomView, error) {
	rooms, err := s.rooms.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询房间列表失败: %w", err)
	}

	views := make([]*RoomView, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		view := &RoomView{
			ID:           room.ID,
			Name:         room.Name,
			Description:  room.Description,
			MessageCount: room.MessageCount,
			IdeaCount:    room.IdeaCount,
			CreatedAt:    room.CreatedAt,
		}
		view.OnlineCount = s.onlineCount(ctx, room.ID)
		views = append(views, view)
	}
	return views, nil
}

// onlineCount 查询房间在线人数
// Redis 故障只影响这个展示性指标，降级为 0 而不是让整个请求失败
func (s *RoomService) onlineCount(ctx context.Context, roomID int64) int64 {
	if s.presence == nil {
		return 0
	}
	count, err := s.presence.RoomOnlineCount(ctx, roomID)
	if err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("查询在线人数失败")
		return 0
	}
	return count
}
