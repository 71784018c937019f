package handler

import (
	"net/http"

	"github.com/2ue/total-gmn/internal/logic"
	"github.com/2ue/total-gmn/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ParticipantHandler struct {
	participantLogic *logic.ParticipantLogic
}

func NewParticipantHandler(db *gorm.DB) *ParticipantHandler {
	return &ParticipantHandler{
		participantLogic: logic.NewParticipantLogic(db),
	}
}

// GetParticipants 获取参与人列表
func (h *ParticipantHandler) GetParticipants(c *gin.Context) {
	participants, err := h.participantLogic.ListParticipants()
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取参与人列表成功", ToParticipantResponseList(participants))
}

// SaveParticipants 整体保存参与人
func (h *ParticipantHandler) SaveParticipants(c *gin.Context) {
	var req SaveParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	participants := make([]model.ParticipantModel, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = model.ParticipantModel{
			Id:          p.ID,
			Name:        p.Name,
			BillAccount: p.BillAccount,
			Ratio:       p.Ratio,
			Note:        p.Note,
		}
	}

	saved, err := h.participantLogic.SaveParticipants(participants)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "参与人保存成功", ToParticipantResponseList(saved))
}
