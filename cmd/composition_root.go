package cmd

import (
	"context"
	"fmt"
	"log/slog"

	httpin "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/courierpool"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/catalogrepo"
	"orderflow/internal/adapters/out/postgres/chatrepo"
	"orderflow/internal/adapters/out/postgres/courierrepo"
	"orderflow/internal/adapters/out/postgres/deliveryrepo"
	"orderflow/internal/adapters/out/postgres/eventrepo"
	"orderflow/internal/adapters/out/postgres/failurerepo"
	"orderflow/internal/adapters/out/postgres/kitchenrepo"
	"orderflow/internal/adapters/out/postgres/paymentrepo"
	"orderflow/internal/adapters/out/realtime"
	"orderflow/internal/adapters/out/telegram"
	"orderflow/internal/core/application/dispatcher"
	"orderflow/internal/core/application/subscribers"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/ports"
	"orderflow/internal/jobs"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// CompositionRoot owns the long-lived collaborators: the dispatcher and the
// realtime hub are shared by every handler it creates.
type CompositionRoot struct {
	cfg    Config
	gormDB *gorm.DB
	logger *slog.Logger

	uowFactory commands.OrderUoWFactory
	ledger     *paymentrepo.GormPaymentLedger
	failures   *failurerepo.GormFailureRepository
	deliveries *deliveryrepo.GormDeliveryLog

	hub        *realtime.Hub
	fanout     *realtime.PostgresFanout
	bot        *tgbotapi.BotAPI
	dispatcher *dispatcher.Dispatcher

	transitions *commands.RequestTransitionCommandHandler
	effects     *commands.SideEffects
}

func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	gormFactory := postgres.NewGormUnitOfWorkFactory(gormDB)
	c := &CompositionRoot{
		cfg:    cfg,
		gormDB: gormDB,
		logger: logger,
		uowFactory: FuncOrderUoWFactory(func() commands.OrderUoW {
			return gormFactory.Create()
		}),
		ledger:     paymentrepo.NewGormPaymentLedger(gormDB),
		failures:   failurerepo.NewGormFailureRepository(gormDB),
		deliveries: deliveryrepo.NewGormDeliveryLog(gormDB),
		hub:        realtime.NewHub(realtime.DefaultSendBuffer, logger),
	}
	c.fanout = realtime.NewPostgresFanout(gormDB, cfg.DSN(), c.hub, logger)

	if cfg.TelegramToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		c.bot = bot
	}

	d, err := dispatcher.New(cfg.Dispatcher, c.deliveries, eventrepo.NewGormEventRepository(gormDB), logger)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	pool := courierpool.NewPool(courierrepo.NewGormWalletRepository(gormDB), c.fanout, logger)
	for _, s := range []dispatcher.Subscriber{
		subscribers.NewNotification(c.notificationSender()),
		subscribers.NewRealtime(c.fanout),
		subscribers.NewKitchenDisplay(c.fanout),
		subscribers.NewCourierPool(pool),
		subscribers.NewAudit(logger),
	} {
		if err := d.Register(s); err != nil {
			return nil, fmt.Errorf("register %s: %w", s.Name(), err)
		}
	}
	c.dispatcher = d

	c.effects = commands.NewSideEffects(c.uowFactory, kitchenrepo.NewGormTicketSink(gormDB), c.ledger,
		pool, c.failures, cfg.CollaboratorTimeout, logger)
	c.transitions = commands.NewRequestTransitionCommandHandler(c.uowFactory, c.ledger, c.effects, d, logger)
	return c, nil
}

func (c *CompositionRoot) notificationSender() ports.NotificationSender {
	if c.bot == nil {
		return telegram.NewLogSender(c.logger)
	}
	return telegram.NewSender(c.bot, chatrepo.NewGormChatDirectory(c.gormDB), c.cfg.TelegramFallbackChat, c.logger)
}

func (c *CompositionRoot) Dispatcher() *dispatcher.Dispatcher {
	return c.dispatcher
}

func (c *CompositionRoot) Hub() *realtime.Hub {
	return c.hub
}

func (c *CompositionRoot) Fanout() *realtime.PostgresFanout {
	return c.fanout
}

// CreateTelegramLinker returns nil when no bot token is configured.
func (c *CompositionRoot) CreateTelegramLinker() *telegram.Linker {
	if c.bot == nil {
		return nil
	}
	return telegram.NewLinker(c.bot, chatrepo.NewGormChatDirectory(c.gormDB), c.logger)
}

func (c *CompositionRoot) CreatePlaceOrderCommandHandler() *commands.PlaceOrderCommandHandler {
	return commands.NewPlaceOrderCommandHandler(c.uowFactory, catalogrepo.NewGormCatalog(c.gormDB), c.dispatcher, c.logger)
}

func (c *CompositionRoot) CreateRequestTransitionCommandHandler() *commands.RequestTransitionCommandHandler {
	return c.transitions
}

func (c *CompositionRoot) CreateConfirmPaymentCommandHandler() *commands.ConfirmPaymentCommandHandler {
	return commands.NewConfirmPaymentCommandHandler(c.uowFactory, c.transitions, c.effects, c.logger)
}

func (c *CompositionRoot) CreateExpireOrdersCommandHandler() *commands.ExpireOrdersCommandHandler {
	return commands.NewExpireOrdersCommandHandler(c.uowFactory, c.transitions, c.logger)
}

func (c *CompositionRoot) CreateRedispatchEventsCommandHandler() *commands.RedispatchEventsCommandHandler {
	return commands.NewRedispatchEventsCommandHandler(c.uowFactory, c.deliveries, c.dispatcher, c.logger)
}

func (c *CompositionRoot) CreateRetryCollaboratorFailuresCommandHandler() *commands.RetryCollaboratorFailuresCommandHandler {
	return commands.NewRetryCollaboratorFailuresCommandHandler(c.failures, c.uowFactory, c.effects, c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetActiveOrdersQueryHandler() queries.GetActiveOrdersQueryHandler {
	return queries.NewGetActiveOrdersQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetCourierWalletQueryHandler() queries.GetCourierWalletQueryHandler {
	return queries.NewGetCourierWalletQueryHandler(c.gormDB)
}

// CreateJobManager prepares the scheduled commands from the configured windows.
func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	redispatch, err := commands.NewRedispatchEventsCommand(c.cfg.RedispatchGrace, commands.DefaultRedispatchBatchSize)
	if err != nil {
		return nil, err
	}
	retry, err := commands.NewRetryCollaboratorFailuresCommand(c.cfg.RetryMaxAttempts, commands.DefaultRetryBatchSize)
	if err != nil {
		return nil, err
	}
	expire, err := commands.NewExpireOrdersCommand(c.cfg.PaymentTimeout, c.cfg.AcceptanceTimeout,
		commands.DefaultExpiryBatchSize)
	if err != nil {
		return nil, err
	}

	return jobs.NewJobManager(jobs.Config{
		RedispatchSchedule: c.cfg.RedispatchSchedule,
		RetrySchedule:      c.cfg.RetrySchedule,
		ExpirySchedule:     c.cfg.ExpirySchedule,
		Redispatch:         redispatch,
		Retry:              retry,
		Expire:             expire,
	},
		c.CreateRedispatchEventsCommandHandler(),
		c.CreateRetryCollaboratorFailuresCommandHandler(),
		c.CreateExpireOrdersCommandHandler(),
		c.logger,
	), nil
}

// CreateRouter builds the HTTP surface over the handlers above.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	server := httpin.NewServer(httpin.Handlers{
		PlaceOrder:        c.CreatePlaceOrderCommandHandler(),
		RequestTransition: c.CreateRequestTransitionCommandHandler(),
		ConfirmPayment:    c.CreateConfirmPaymentCommandHandler(),
		GetOrder:          c.CreateGetOrderQueryHandler(),
		GetActiveOrders:   c.CreateGetActiveOrdersQueryHandler(),
		GetCourierWallet:  c.CreateGetCourierWalletQueryHandler(),
	}, c.ledger, c.hub, c.logger)

	return httpin.NewRouter(server, httpin.RouterConfig{
		JWTSecret: c.cfg.JWTSecret,
		Health:    c.ping,
	}, c.logger)
}

func (c *CompositionRoot) ping(ctx context.Context) error {
	sqlDB, err := c.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}
