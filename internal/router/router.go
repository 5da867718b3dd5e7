package router

import (
	"github.com/sylvan-next/internal/config"
	adminhandlers "github.com/sylvan-next/internal/http/handlers/admin"
	publichandlers "github.com/sylvan-next/internal/http/handlers/public"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开目录接口
		apiV1.GET("/trees", publicHandler.GetTrees)
		apiV1.GET("/trees/:id", publicHandler.GetTree)
		apiV1.GET("/plots", publicHandler.GetPlots)
		apiV1.GET("/plots/:id", publicHandler.GetPlot)
		apiV1.GET("/products", publicHandler.GetProducts)
		apiV1.GET("/products/:id", publicHandler.GetProduct)

		// 游客接口
		guest := apiV1.Group("/guest")
		{
			guest.POST("/orders", publicHandler.CreateGuestOrder)
			guest.GET("/orders", publicHandler.GetGuestOrder)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.GET("/adoptions", publicHandler.ListMyAdoptions)
			user.POST("/payments/create-intent", publicHandler.CreatePaymentIntent)
			user.POST("/payments/confirm", publicHandler.ConfirmPayment)
			user.POST("/payments/sync", publicHandler.SyncPayment)
			user.GET("/tokens", publicHandler.GetMyTokenAccount)
			user.GET("/tokens/transactions", publicHandler.GetMyTokenTransactions)
		}

		// 支付网关回调（验签后处理，无需登录态）
		apiV1.POST("/payments/webhook", publicHandler.StripeWebhook)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.GET("/me", adminHandler.GetCurrentAdmin)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.PUT("/orders/:id/status", adminHandler.UpdateAdminOrderStatus)
				authorized.POST("/orders/:id/refund", adminHandler.RefundAdminOrder)

				// 认养记录
				authorized.GET("/adoptions", adminHandler.ListAdminAdoptions)

				// 优惠码管理
				authorized.POST("/discounts", adminHandler.CreateAdminDiscount)
				authorized.GET("/discounts", adminHandler.ListAdminDiscounts)
				authorized.POST("/discounts/:id/cancel", adminHandler.CancelAdminDiscount)

				// 积分管理
				authorized.POST("/tokens/adjust", adminHandler.AdjustUserTokens)
				authorized.GET("/tokens/accounts/:id", adminHandler.GetUserTokenAccount)
				authorized.GET("/tokens/transactions", adminHandler.ListUserTokenTransactions)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
