// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"pitchlab-server/internal/service"
	"pitchlab-server/pkg/response"
)

// IdeaHandler 点子请求处理器
type IdeaHandler struct {
	collabService *service.CollabService
}

// NewIdeaHandler 创建 IdeaHandler 实例
func NewIdeaHandler(collabService *service.CollabService) *IdeaHandler {
	return &IdeaHandler{
		collabService: collabService,
	}
}

// CreateIdeaRequest 创建点子请求参数
type CreateIdeaRequest struct {
	RoomID      int64   `json:"room_id" binding:"required"`
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// VoteRequest 投票请求参数
// Value 用指针区分"传了 0"和"没传"
type VoteRequest struct {
	Value *int `json:"value" binding:"required"`
}

// ListIdeas 获取房间的点子列表
// @Summary 点子列表
// @Description sort_by 为 score（默认，按票数倒序）或 recent（按时间倒序）
// @Tags 点子
// @Security Bearer
// @Produce json
// @Param roomId path int true "房间ID"
// @Param sort_by query string false "排序方式：score / recent"
// @Success 200 {object} response.Response{data=[]service.IdeaView}
// @Router /api/ideas/{roomId} [get]
func (h *IdeaHandler) ListIdeas(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房间ID")
		return
	}

	ideas, err := h.collabService.ListIdeas(c.Request.Context(), roomID, c.Query("sort_by"))
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		default:
			response.InternalError(c, "查询点子失败")
		}
		return
	}

	response.Success(c, ideas)
}

// GetIdea 获取点子详情
// @Summary 点子详情
// @Tags 点子
// @Security Bearer
// @Produce json
// @Param id path int true "点子ID"
// @Success 200 {object} response.Response{data=service.IdeaView}
// @Router /api/ideas/details/{id} [get]
func (h *IdeaHandler) GetIdea(c *gin.Context) {
	ideaID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的点子ID")
		return
	}

	idea, err := h.collabService.GetIdea(c.Request.Context(), ideaID)
	if err != nil {
		switch err {
		case service.ErrIdeaNotFound:
			response.IdeaNotFound(c)
		default:
			response.InternalError(c, "查询点子失败")
		}
		return
	}

	response.Success(c, idea)
}

// CreateIdea 创建点子
// @Summary 创建点子
// @Description 落库后广播给房间内的所有会话，票数从 0 开始
// @Tags 点子
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body CreateIdeaRequest true "点子信息"
// @Success 201 {object} response.Response{data=service.IdeaView}
// @Router /api/ideas [post]
func (h *IdeaHandler) CreateIdea(c *gin.Context) {
	var req CreateIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID := c.GetInt64("user_id")

	idea, err := h.collabService.CreateIdea(c.Request.Context(), req.RoomID, userID, req.Title, req.Description)
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		case service.ErrUserNotFound:
			response.UserNotFound(c)
		default:
			response.InternalError(c, "创建点子失败")
		}
		return
	}

	response.Created(c, idea)
}

// Vote 对点子投票
// @Summary 投票
// @Description value 为 1 赞成、-1 反对、0 撤回；同一用户重复投票是覆盖而不是叠加
// @Tags 点子
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "点子ID"
// @Param body body VoteRequest true "投票值"
// @Success 200 {object} response.Response{data=service.IdeaView}
// @Router /api/ideas/{id}/vote [post]
func (h *IdeaHandler) Vote(c *gin.Context) {
	ideaID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的点子ID")
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID := c.GetInt64("user_id")

	idea, _, err := h.collabService.CastVote(c.Request.Context(), userID, ideaID, *req.Value)
	if err != nil {
		switch err {
		case service.ErrIdeaNotFound:
			response.IdeaNotFound(c)
		case service.ErrInvalidVoteValue:
			response.BadVoteValue(c)
		default:
			response.InternalError(c, "投票失败")
		}
		return
	}

	response.Success(c, idea)
}
