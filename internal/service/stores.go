// Package service 实现业务逻辑层
package service

import (
	"context"
	"time"

	"pitchlab-server/internal/model"
	"pitchlab-server/internal/repository"
)

// 服务层依赖的数据访问接口
// 按消费方定义窄接口，repository 包的具体实现天然满足，
// 测试时可以用内存实现替换，不需要真实数据库

// UserStore 用户数据访问接口
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetGuestByName(ctx context.Context, name string) (*model.User, error)
	GetAssistant(ctx context.Context, name string) (*model.User, error)
}

// RoomStore 房间数据访问接口
type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id int64) (*model.Room, error)
	GetByIDWithCounts(ctx context.Context, id int64) (*repository.RoomWithCounts, error)
	ListWithCounts(ctx context.Context) ([]repository.RoomWithCounts, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// MessageStore 消息数据访问接口
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	ListByRoomCursor(ctx context.Context, roomID, cursor int64, limit int) ([]model.Message, bool, error)
	GetLatestByRoomID(ctx context.Context, roomID int64, limit int) ([]model.Message, error)
}

// IdeaStore 点子数据访问接口
type IdeaStore interface {
	Create(ctx context.Context, idea *model.Idea) error
	GetByID(ctx context.Context, id int64) (*model.Idea, error)
	GetByIDWithUser(ctx context.Context, id int64) (*model.Idea, error)
	ListByRoomID(ctx context.Context, roomID int64, sortBy string) ([]model.Idea, error)
	UpdateScore(ctx context.Context, id int64, score int) error
}

// VoteStore 投票数据访问接口
type VoteStore interface {
	Upsert(ctx context.Context, vote *model.Vote) error
	GetByUserAndIdea(ctx context.Context, userID, ideaID int64) (*model.Vote, error)
	SumByIdeaID(ctx context.Context, ideaID int64) (int, error)
}

// Presence 房间在线状态接口
// 由 Redis 缓存实现，房间列表用它展示在线人数
type Presence interface {
	RoomOnlineCount(ctx context.Context, roomID int64) (int64, error)
}

// TokenBlacklist JWT 黑名单接口
// 由 Redis 缓存实现，登出时使 Token 提前失效
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error
}

// Broadcaster 房间广播接口
// 由 WebSocket Hub 实现，服务层写入成功后通过它把事件推给房间内的所有会话。
// 服务层只依赖接口，不感知连接管理的细节
type Broadcaster interface {
	Publish(roomID int64, event string, payload interface{})
}
