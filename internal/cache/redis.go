// Package cache 提供 Redis 缓存操作的封装
// 处理房间在线人数、JWT 黑名单等需要快速访问的数据
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"pitchlab-server/internal/config"
)

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username, // 阿里云 Redis 需要用户名
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ==================== 房间在线状态 ====================
// 使用 Redis Set 存储每个房间的在线用户，支持快速计数

// AddRoomMember 记录用户进入房间
// WebSocket 会话加入房间时调用
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - userID: 用户ID
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) AddRoomMember(ctx context.Context, roomID, userID int64) error {
	// SADD 如果元素已存在，不会重复添加
	// 同一用户多个连接加入同一房间也只计一次
	return c.client.SAdd(ctx, roomMembersKey(roomID), userID).Err()
}

// RemoveRoomMember 记录用户离开房间
// WebSocket 会话离开房间或断开时调用
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//   - userID: 用户ID
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) RemoveRoomMember(ctx context.Context, roomID, userID int64) error {
	// SREM 如果元素不存在，不会报错
	return c.client.SRem(ctx, roomMembersKey(roomID), userID).Err()
}

// RoomOnlineCount 获取房间当前在线用户数
// 房间列表接口用它展示活跃程度
// 参数:
//   - ctx: 上下文
//   - roomID: 房间ID
//
// 返回:
//   - int64: 在线用户数
//   - error: Redis 操作错误
func (c *RedisCache) RoomOnlineCount(ctx context.Context, roomID int64) (int64, error) {
	return c.client.SCard(ctx, roomMembersKey(roomID)).Result()
}

// roomMembersKey 房间在线成员集合的 Key
func roomMembersKey(roomID int64) string {
	return fmt.Sprintf("room:%d:online", roomID)
}

// ==================== JWT 黑名单 ====================
// 用于实现 Token 强制失效（登出）功能

// BlacklistToken 将 Token 加入黑名单
// 登出时调用，使当前 Token 失效
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	// 计算剩余有效时间
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Token 已过期，无需加入黑名单
		return nil
	}

	// TTL 设置为 Token 的剩余有效期，过期后自动删除（因为 Token 本身也过期了）
	return c.client.Set(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
// JWT 验证中间件调用
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值
//
// 返回:
//   - bool: 是否在黑名单中
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) bool {
	// EXISTS 命令返回存在的 Key 数量
	return c.client.Exists(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash)).Val() > 0
}

// ==================== 通用方法 ====================

// Ping 检查 Redis 连接
// 参数:
//   - ctx: 上下文
//
// 返回:
//   - error: 如果连接失败返回错误
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
