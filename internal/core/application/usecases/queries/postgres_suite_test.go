package queries_test

import (
	"context"
	"time"

	postgres_adapter "orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresSuite starts one PostgreSQL container per suite and seeds orders through
// the real repository.
type postgresSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	orderRepo *orderrepo.GormOrderRepository
}

func (suite *postgresSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(postgres_adapter.Migrate(db))
	suite.orderRepo = orderrepo.NewGormOrderRepository(db)
}

func (suite *postgresSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *postgresSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders CASCADE").Error)
}

func (suite *postgresSuite) actor(role order.Role) order.Actor {
	a, err := order.NewActor(kernel.NewUUID(), role)
	suite.Require().NoError(err)
	return a
}

// seed stores a cash order created at createdAt and returns it at version 1.
func (suite *postgresSuite) seed(channel order.Channel, restaurantID kernel.UUID, createdAt time.Time) *order.Order {
	customer := suite.actor(order.RoleCustomer)
	item, err := order.NewItem(kernel.NewUUID(), "Miso soup", 3, kernel.MustMoney("3.50"))
	suite.Require().NoError(err)

	o, err := order.NewOrder(order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(createdAt),
		RestaurantID:  restaurantID,
		CustomerID:    customer.ID(),
		Channel:       channel,
		PaymentMethod: order.PaymentCash,
		Items:         []order.Item{item},
		Fees:          kernel.ZeroMoney(),
		Tax:           kernel.MustMoney("0.84"),
		Discount:      kernel.ZeroMoney(),
		PlacedBy:      customer,
		CreatedAt:     createdAt,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.orderRepo.Add(context.Background(), o))
	o.MarkPersisted(1)
	return o
}

func (suite *postgresSuite) advance(o *order.Order, target order.Status, actor order.Actor, note string) {
	_, err := o.ApplyTransition(order.TransitionInput{Target: target, Actor: actor, Note: note, At: time.Now()})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.orderRepo.Update(context.Background(), o))
	o.MarkPersisted(o.Version() + 1)
}
