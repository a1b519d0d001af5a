package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leadscout/leadscout-api/internal/authz"
	"github.com/leadscout/leadscout-api/internal/cache"
	"github.com/leadscout/leadscout-api/internal/config"
	adminhandlers "github.com/leadscout/leadscout-api/internal/http/handlers/admin"
	publichandlers "github.com/leadscout/leadscout-api/internal/http/handlers/public"
	"github.com/leadscout/leadscout-api/internal/http/response"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/provider"

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
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ls"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "登录尝试过于频繁，请稍后再试",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "登录尝试过于频繁，请稍后再试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/plans", publicHandler.GetPlans)
			public.GET("/captcha/setting", publicHandler.GetCaptchaSetting)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 游客下单与订单查询
		apiV1.POST("/orders", publicHandler.CreateOrder)
		apiV1.GET("/orders/:out_trade_no/status", publicHandler.GetOrderStatus)
		apiV1.POST("/payments/alipay/notify", publicHandler.AlipayNotify)

		// 授权许可（客户端调用）
		license := apiV1.Group("/licenses")
		{
			license.POST("/validate", publicHandler.ValidateLicense)
			license.POST("/activate", publicHandler.ActivateLicense)
		}

		// 邮件追踪像素与点击跳转
		apiV1.GET("/t/open.gif", publicHandler.TrackingOpenPixel)
		apiV1.GET("/t/click", publicHandler.TrackingClickRedirect)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/send-verify-code", publicHandler.SendUserVerifyCode)
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
			auth.POST("/forgot-password", publicHandler.UserForgotPassword)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.GET("/me/login-logs", publicHandler.GetMyLoginLogs)
			user.PUT("/me/profile", publicHandler.UpdateUserProfile)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)
			user.POST("/me/email/send-verify-code", publicHandler.SendChangeEmailCode)
			user.POST("/me/email/change", publicHandler.ChangeEmail)

			user.GET("/me/tracking/stats", publicHandler.GetMyTrackingStats)
			user.POST("/me/tracking/token", publicHandler.BuildTrackingToken)

			user.POST("/agent/apply", publicHandler.ApplyAgent)
			user.GET("/agent/dashboard", publicHandler.GetAgentDashboard)
			user.GET("/agent/children", publicHandler.ListAgentChildren)
			user.POST("/agent/invitations", publicHandler.InviteCustomer)
			user.GET("/agent/commissions", publicHandler.ListMyCommissions)
			user.POST("/agent/withdrawals", publicHandler.ApplyWithdrawal)
			user.GET("/agent/withdrawals", publicHandler.ListMyWithdrawals)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				authorized.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				// 账号
				authorized.GET("/profile", adminHandler.GetAdminProfile)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 代理管理
				authorized.GET("/agents", adminHandler.GetAdminAgents)
				authorized.POST("/agents", adminHandler.CreateAdminAgent)
				authorized.GET("/agents/:id", adminHandler.GetAdminAgent)
				authorized.GET("/agents/:id/ancestors", adminHandler.GetAdminAgentAncestors)
				authorized.PATCH("/agents/:id/status", adminHandler.UpdateAdminAgentStatus)
				authorized.GET("/invitations", adminHandler.GetAdminInvitations)

				// 佣金管理
				authorized.GET("/commissions", adminHandler.GetAdminCommissions)
				authorized.POST("/commissions/allocate", adminHandler.AllocateAdminCommissions)
				authorized.POST("/commissions/decide", adminHandler.DecideAdminCommissions)

				// 提现管理
				authorized.GET("/withdrawals", adminHandler.GetAdminWithdrawals)
				authorized.GET("/withdrawals/:id", adminHandler.GetAdminWithdrawal)
				authorized.POST("/withdrawals/process", adminHandler.ProcessAdminWithdrawals)

				// 订单管理
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.GET("/orders/:id/commissions", adminHandler.GetAdminOrderCommissions)

				// 授权许可管理
				authorized.GET("/licenses", adminHandler.GetAdminLicenses)
				authorized.POST("/licenses", adminHandler.GenerateAdminLicense)
				authorized.GET("/licenses/:id", adminHandler.GetAdminLicense)
				authorized.POST("/licenses/:id/revoke", adminHandler.RevokeAdminLicense)

				// 系统配置
				authorized.GET("/configs", adminHandler.GetAdminConfigs)
				authorized.GET("/configs/:key", adminHandler.GetAdminConfig)
				authorized.POST("/configs", adminHandler.UpdateAdminConfigs)

				// 邮件追踪
				authorized.GET("/tracking/events", adminHandler.GetAdminTrackingEvents)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/user-login-logs", adminHandler.GetUserLoginLogs)
				authorized.PUT("/users/batch-status", adminHandler.BatchUpdateUserStatus)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PUT("/users/:id", adminHandler.UpdateAdminUser)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
