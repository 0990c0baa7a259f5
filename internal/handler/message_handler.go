// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"pitchlab-server/internal/service"
	"pitchlab-server/pkg/response"
)

// MessageHandler 消息请求处理器
// 创建消息走的是和 WebSocket 完全相同的服务层写路径，
// 两条入口的校验和广播行为一致
type MessageHandler struct {
	collabService *service.CollabService
}

// NewMessageHandler 创建 MessageHandler 实例
func NewMessageHandler(collabService *service.CollabService) *MessageHandler {
	return &MessageHandler{
		collabService: collabService,
	}
}

// CreateMessageRequest 创建消息请求参数
type CreateMessageRequest struct {
	RoomID    int64  `json:"room_id" binding:"required"`
	Content   string `json:"content" binding:"required,min=1"`
	TriggerAI bool   `json:"trigger_ai"`
}

// ListMessages 游标分页获取房间的历史消息
// @Summary 历史消息
// @Description 从最新的消息向更早的方向翻页，页内按时间正序返回
// @Tags 消息
// @Security Bearer
// @Produce json
// @Param roomId path int true "房间ID"
// @Param cursor query int false "游标（上一页返回的 next_cursor），不传从最新开始"
// @Param limit query int false "每页数量，默认 50，上限 100"
// @Success 200 {object} response.Response{data=service.MessagePage}
// @Router /api/messages/{roomId} [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房间ID")
		return
	}

	// cursor 和 limit 都是可选参数，解析失败按未提供处理
	cursor, _ := strconv.ParseInt(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.collabService.ListMessages(c.Request.Context(), roomID, cursor, limit)
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		default:
			response.InternalError(c, "查询消息失败")
		}
		return
	}

	response.Success(c, page)
}

// LatestMessages 获取房间最新的 N 条消息
// @Summary 最新消息
// @Description 返回房间最新的 N 条消息，按时间正序排列
// @Tags 消息
// @Security Bearer
// @Produce json
// @Param roomId path int true "房间ID"
// @Param limit query int false "数量，默认 50，上限 100"
// @Success 200 {object} response.Response{data=[]service.MessageView}
// @Router /api/messages/{roomId}/latest [get]
func (h *MessageHandler) LatestMessages(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房间ID")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.collabService.LatestMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		default:
			response.InternalError(c, "查询消息失败")
		}
		return
	}

	response.Success(c, messages)
}

// CreateMessage 创建消息
// @Summary 发送消息
// @Description 落库后广播给房间内的所有会话；trigger_ai 为 true 时异步触发一次 AI 增强
// @Tags 消息
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body CreateMessageRequest true "消息内容"
// @Success 201 {object} response.Response{data=service.MessageView}
// @Router /api/messages [post]
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID := c.GetInt64("user_id")

	// 角色固定为 user：HTTP 入口同样不允许伪造助手消息
	message, err := h.collabService.CreateMessage(c.Request.Context(), req.RoomID, userID, req.Content, "", req.TriggerAI)
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		case service.ErrUserNotFound:
			response.UserNotFound(c)
		default:
			response.InternalError(c, "发送消息失败")
		}
		return
	}

	response.Created(c, message)
}
