// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"pitchlab-server/internal/service"
	"pitchlab-server/pkg/response"
)

// RoomHandler 房间请求处理器
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// CreateRoomRequest 创建房间请求参数
type CreateRoomRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// ListRooms 获取房间列表
// @Summary 房间列表
// @Description 返回所有房间及其消息数、点子数、在线人数，最新创建的在前
// @Tags 房间
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=[]service.RoomView}
// @Router /api/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		response.InternalError(c, "查询房间列表失败")
		return
	}

	response.Success(c, rooms)
}

// GetRoom 获取房间详情
// @Summary 房间详情
// @Tags 房间
// @Security Bearer
// @Produce json
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response{data=service.RoomView}
// @Router /api/rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房间ID")
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		switch err {
		case service.ErrRoomNotFound:
			response.RoomNotFound(c)
		default:
			response.InternalError(c, "查询房间失败")
		}
		return
	}

	response.Success(c, room)
}

// CreateRoom 创建房间
// @Summary 创建房间
// @Tags 房间
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body CreateRoomRequest true "房间信息"
// @Success 201 {object} response.Response{data=service.RoomView}
// @Router /api/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		response.InternalError(c, "创建房间失败")
		return
	}

	response.Created(c, room)
}
