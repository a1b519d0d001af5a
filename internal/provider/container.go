package provider

import (
	"github.com/leadscout/leadscout-api/internal/authz"
	"github.com/leadscout/leadscout-api/internal/cache"
	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/payment/alipay"
	"github.com/leadscout/leadscout-api/internal/queue"
	"github.com/leadscout/leadscout-api/internal/repository"
	"github.com/leadscout/leadscout-api/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo           repository.AdminRepository
	UserRepo            repository.UserRepository
	EmailVerifyCodeRepo repository.EmailVerifyCodeRepository
	OrderRepo           repository.OrderRepository
	AgentRepo           repository.AgentRepository
	InvitationRepo      repository.InvitationRepository
	CommissionRepo      repository.CommissionRepository
	WithdrawalRepo      repository.WithdrawalRepository
	LicenseRepo         repository.LicenseRepository
	ConfigRepo          repository.ConfigRepository
	TrackingRepo        repository.TrackingRepository
	UserLoginLogRepo    repository.UserLoginLogRepository
	AuthzAuditLogRepo   repository.AuthzAuditLogRepository
	DashboardRepo       repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	ConfigService       *service.ConfigService
	PlanCatalog         *service.PlanCatalog
	AgentService        *service.AgentService
	CommissionService   *service.CommissionService
	WithdrawalService   *service.WithdrawalService
	LicenseService      *service.LicenseService
	OrderService        *service.OrderService
	TrackingService     *service.TrackingService
	UserLoginLogService *service.UserLoginLogService
	AuthzAuditService   *service.AuthzAuditService
	DashboardService    *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.EmailVerifyCodeRepo = repository.NewEmailVerifyCodeRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AgentRepo = repository.NewAgentRepository(db)
	c.InvitationRepo = repository.NewInvitationRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
	c.LicenseRepo = repository.NewLicenseRepository(db)
	c.ConfigRepo = repository.NewConfigRepository(db)
	c.TrackingRepo = repository.NewTrackingRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	alipayConfig := buildAlipayConfig(c.Config)

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.EmailVerifyCodeRepo, c.EmailService)
	c.ConfigService = service.NewConfigService(c.ConfigRepo)
	c.PlanCatalog = service.NewPlanCatalog(nil)
	c.AgentService = service.NewAgentService(c.AgentRepo, c.InvitationRepo, c.CommissionRepo, c.WithdrawalRepo)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.AgentRepo, c.InvitationRepo, c.AgentService, c.ConfigService)
	c.WithdrawalService = service.NewWithdrawalService(c.WithdrawalRepo, c.AgentRepo, c.ConfigService, service.NewAlipayWithdrawalGateway(alipayConfig), c.QueueClient)
	c.LicenseService = service.NewLicenseService(c.LicenseRepo, c.PlanCatalog)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.AgentRepo, c.LicenseService, c.CommissionService, c.AgentService, c.PlanCatalog, alipayConfig, c.QueueClient, c.Config.Order.PaymentExpireMinutes)
	c.TrackingService = service.NewTrackingService(c.TrackingRepo, c.LicenseRepo, c.UserRepo, c.QueueClient, c.Config.Tracking.TokenSecret, c.Config.Tracking.DailyFreeQuota)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}

func buildAlipayConfig(cfg *config.Config) *alipay.Config {
	if cfg == nil || !cfg.Alipay.Enabled {
		return nil
	}
	return &alipay.Config{
		AppID:            cfg.Alipay.AppID,
		PrivateKey:       cfg.Alipay.PrivateKey,
		AlipayPublicKey:  cfg.Alipay.AlipayPublicKey,
		GatewayURL:       cfg.Alipay.GatewayURL,
		NotifyURL:        cfg.Alipay.NotifyURL,
		ReturnURL:        cfg.Alipay.ReturnURL,
		SignType:         cfg.Alipay.SignType,
		AppCertSN:        cfg.Alipay.AppCertSN,
		AlipayRootCertSN: cfg.Alipay.AlipayRootCertSN,
	}
}
