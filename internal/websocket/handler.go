// Package websocket 提供 WebSocket 通信功能
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	pkgJwt "pitchlab-server/pkg/jwt"
	"pitchlab-server/pkg/response"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	// 读缓冲区大小
	ReadBufferSize: 1024,
	// 写缓冲区大小
	WriteBufferSize: 1024,
	// 检查来源（生产环境应该验证）
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要检查 Origin
		return true
	},
}

// Handler 处理 WebSocket 连接
type Handler struct {
	hub       *Hub
	jwtSecret string
}

// NewHandler 创建 WebSocket Handler
func NewHandler(hub *Hub, jwtSecret string) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// HandleWS 处理 WebSocket 连接
// 路由: GET /ws
// 参数: token (query parameter) - JWT token
// 身份在这里一次性绑定到连接上，之后的事件不再携带也不再信任用户字段
func (h *Handler) HandleWS(c *gin.Context) {
	// 从 query 参数获取 token
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "需要认证 token")
		return
	}

	// 验证 JWT token
	claims, err := pkgJwt.ParseUserToken(token, h.jwtSecret)
	if err != nil {
		response.Unauthorized(c, "无效的 token")
		return
	}

	// 升级 HTTP 连接为 WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("升级 WebSocket 连接失败")
		return
	}

	// 创建客户端，绑定握手时的身份
	client := NewClient(h.hub, conn, claims.UserID, claims.Name, claims.IsGuest)

	// 注册客户端
	h.hub.Register(client)

	// 启动读写协程
	go client.WritePump()
	go client.ReadPump()

	logrus.WithFields(logrus.Fields{
		"user_id": claims.UserID,
		"name":    claims.Name,
	}).Info("WebSocket 已连接")
}

// RegisterRoutes 注册 WebSocket 路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// WebSocket 路由不走认证中间件（token 在 query 中验证）
	r.GET("/ws", h.HandleWS)
}
