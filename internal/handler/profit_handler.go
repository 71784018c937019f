package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProfitHandler struct {
	profitLogic *logic.ProfitLogic
	loc         *time.Location
}

func NewProfitHandler(db *gorm.DB, cfg config.SettlementConfig) *ProfitHandler {
	return &ProfitHandler{
		profitLogic: logic.NewProfitLogic(db, cfg),
		loc:         logic.LoadLocation(cfg.TimeZone),
	}
}

// GetSummary 利润汇总
func (h *ProfitHandler) GetSummary(c *gin.Context) {
	start, end, err := parseRange(c, h.loc)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.profitLogic.GetSummary(start, end, strings.TrimSpace(c.Query("billAccount")))
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取利润汇总成功", ToSummaryResponse(summary))
}
