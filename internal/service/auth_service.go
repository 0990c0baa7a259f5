// Package service 实现业务逻辑层
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"pitchlab-server/internal/model"
	"pitchlab-server/pkg/jwt"
	"pitchlab-server/pkg/util"
)

// AuthResult 认证成功后的返回结果
type AuthResult struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"` // Access Token 有效期（秒）
}

// AuthService 认证服务
// 支持两种身份：注册用户（邮箱 + 密码）和访客（只有昵称）。
// 两种身份拿到的 Token 结构完全一致，后续请求不再区分
type AuthService struct {
	users     UserStore
	tokens    *jwt.JWTService
	blacklist TokenBlacklist
	log       *logrus.Entry
}

// NewAuthService 创建 AuthService 实例
// blacklist 允许为 nil，此时登出只在客户端生效
func NewAuthService(users UserStore, tokens *jwt.JWTService, blacklist TokenBlacklist) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		log:       logrus.WithField("module", "auth_service"),
	}
}

// Register 注册新用户
// 参数:
//   - ctx: 上下文
//   - name: 显示名称
//   - email: 邮箱，全局唯一
//   - password: 明文密码，存储前做 bcrypt 哈希
//
// 返回:
//   - *AuthResult: 用户信息和 Token 对
//   - error: ErrEmailTaken 或数据库错误
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        &email,
		PasswordHash: hash,
		IsGuest:      false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   email,
	}).Info("新用户注册")

	return s.issueTokens(user)
}

// Login 邮箱密码登录
// 用户不存在和密码错误返回同一个错误，避免泄露账号是否存在
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil || !util.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.log.WithField("user_id", user.ID).Info("用户登录")
	return s.issueTokens(user)
}

// Identify 访客登录
// 同名访客复用同一个用户，避免每次进入都产生新账号；
// 不存在时创建新的访客用户
func (s *AuthService) Identify(ctx context.Context, name string) (*AuthResult, error) {
	user, err := s.users.GetGuestByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("查询访客失败: %w", err)
	}
	if user == nil {
		user = &model.User{
			Name:    name,
			IsGuest: true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("创建访客失败: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"name":    name,
		}).Info("新访客进入")
	}

	return s.issueTokens(user)
}

// Refresh 用 Refresh Token 换取新的 Token 对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	// 回读用户确保账号仍然存在
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return s.issueTokens(user)
}

// Logout 登出
// 把当前 Access Token 加入黑名单，使它在原本过期之前就失效
// 参数:
//   - ctx: 上下文
//   - accessToken: 当前请求携带的 Access Token
//   - expireAt: Token 的原始过期时间
func (s *AuthService) Logout(ctx context.Context, accessToken string, expireAt time.Time) error {
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, HashToken(accessToken), expireAt); err != nil {
		return fmt.Errorf("写入黑名单失败: %w", err)
	}
	return nil
}

// GetMe 获取当前用户信息
func (s *AuthService) GetMe(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// issueTokens 为用户签发 Token 对
func (s *AuthService) issueTokens(user *model.User) (*AuthResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Name, user.IsGuest)
	if err != nil {
		return nil, fmt.Errorf("生成 Access Token 失败: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Name, user.IsGuest)
	if err != nil {
		return nil, fmt.Errorf("生成 Refresh Token 失败: %w", err)
	}

	return &AuthResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.GetAccessExpire().Seconds()),
	}, nil
}

// HashToken 计算 Token 的哈希值
// 黑名单只存哈希，不存原始 Token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
