package provider

import (
	"github.com/sylvan-next/internal/cache"
	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/queue"
	"github.com/sylvan-next/internal/repository"
	"github.com/sylvan-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo    repository.AdminRepository
	UserRepo     repository.UserRepository
	OrderRepo    repository.OrderRepository
	ProductRepo  repository.ProductRepository
	TreeRepo     repository.TreeRepository
	PlotRepo     repository.LandPlotRepository
	AdoptionRepo repository.AdoptionRepository
	DiscountRepo repository.DiscountRepository
	TokenRepo    repository.TokenRepository

	// Services
	AuthService     *service.AuthService
	UserAuthService *service.UserAuthService
	EmailService    *service.EmailService
	PricingEngine   *service.PricingEngine
	DiscountService *service.DiscountService
	TokenService    *service.TokenService
	AdoptionService *service.AdoptionService
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
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
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.TreeRepo = repository.NewTreeRepository(db)
	c.PlotRepo = repository.NewLandPlotRepository(db)
	c.AdoptionRepo = repository.NewAdoptionRepository(db)
	c.DiscountRepo = repository.NewDiscountRepository(db)
	c.TokenRepo = repository.NewTokenRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.AuthService = service.NewAuthService(cfg, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(cfg, c.UserRepo)
	c.EmailService = service.NewEmailService(&cfg.Email)
	c.PricingEngine = service.NewPricingEngine(cfg.Pricing)
	c.DiscountService = service.NewDiscountService(c.DiscountRepo)
	c.TokenService = service.NewTokenService(c.TokenRepo)
	c.AdoptionService = service.NewAdoptionService(c.TreeRepo, c.PlotRepo, c.AdoptionRepo)

	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.TreeRepo,
		c.PlotRepo,
		c.AdoptionRepo,
		c.DiscountService,
		c.TokenService,
		c.AdoptionService,
		c.PricingEngine,
		c.QueueClient,
		cfg.Order,
		cfg.Pricing,
	)

	paymentService, err := service.NewPaymentService(c.OrderRepo, c.OrderService, c.PricingEngine, cfg.Stripe)
	if err != nil {
		logger.Errorw("provider_init_payment_service_failed", "error", err)
	} else {
		c.PaymentService = paymentService
	}
}
