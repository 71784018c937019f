package router

import (
	"time"

	"github.com/2ue/total-gmn/internal/config"
	"github.com/2ue/total-gmn/internal/handler"
	"github.com/2ue/total-gmn/internal/logger"
	"github.com/2ue/total-gmn/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const requestIDHeader = "X-Request-ID"

func Setup(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(requestIDMiddleware())
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "profit-settlement-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 结算批次
		settlementHandler := handler.NewSettlementHandler(db, cfg.Settlement)
		settlements := v1.Group("/settlements")
		{
			settlements.GET("/preview", settlementHandler.PreviewSettlement)
			settlements.POST("", settlementHandler.CreateSettlement)
			settlements.GET("", settlementHandler.GetSettlements)
			settlements.GET("/:id", settlementHandler.GetSettlement)
			settlements.DELETE("/:id", settlementHandler.DeleteSettlement)
		}

		// 参与人
		participantHandler := handler.NewParticipantHandler(db)
		participants := v1.Group("/participants")
		{
			participants.GET("", participantHandler.GetParticipants)
			participants.PUT("", participantHandler.SaveParticipants)
		}

		// 交易
		transactionHandler := handler.NewTransactionHandler(db, logic.LoadLocation(cfg.Settlement.TimeZone))
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.ImportTransactions)
			transactions.GET("", transactionHandler.GetTransactions)
			transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
			transactions.PATCH("/category", transactionHandler.UpdateCategory)
		}

		// 利润汇总
		profitHandler := handler.NewProfitHandler(db, cfg.Settlement)
		v1.GET("/profit/summary", profitHandler.GetSummary)
	}

	return r
}

// requestIDMiddleware 透传或生成请求ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// requestLogger 访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger.With(zap.String("request_id", c.GetString("request_id"))).
			Info("%s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
