package cmd

import (
	"log/slog"

	inrabbit "orderflow/internal/adapters/in/rabbitmq"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/rabbitmq"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/jobs"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

// CompositionRoot constructs the whole object graph explicitly. Everything is
// built from three externally owned resources: the database handle, the AMQP
// connection/channel, and the root logger.
type CompositionRoot struct {
	config     Config
	gormDB     *gorm.DB
	amqpConn   *amqp.Connection
	uowFactory *postgres.GormUnitOfWorkFactory
	publisher  *rabbitmq.Publisher
	logPub     *rabbitmq.LogPublisher
	logger     *slog.Logger
}

// NewCompositionRoot wires the shared adapters. The channel is used by both
// publishers; listeners get their own channels because prefetch is per
// channel.
func NewCompositionRoot(
	config Config,
	gormDB *gorm.DB,
	amqpConn *amqp.Connection,
	amqpChannel *amqp.Channel,
	logger *slog.Logger,
) CompositionRoot {
	return CompositionRoot{
		config:     config,
		gormDB:     gormDB,
		amqpConn:   amqpConn,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		publisher:  rabbitmq.NewPublisher(amqpChannel, config.Broker, config.ServiceName, logger),
		logPub:     rabbitmq.NewLogPublisher(amqpChannel, config.Broker, config.ServiceName, logger),
		logger:     logger,
	}
}

// LogPublisher returns the centralized log shipper.
func (c *CompositionRoot) LogPublisher() *rabbitmq.LogPublisher {
	return c.logPub
}

// CreateCreateOrderCommandHandler builds the order creation handler.
func (c *CompositionRoot) CreateCreateOrderCommandHandler() commands.CreateOrderCommandHandler {
	return commands.NewCreateOrderCommandHandler(c.uowFactory, c.publisher, c.logger)
}

// CreateUpdateOrderStatusCommandHandler builds the status transition handler.
func (c *CompositionRoot) CreateUpdateOrderStatusCommandHandler() commands.UpdateOrderStatusCommandHandler {
	return commands.NewUpdateOrderStatusCommandHandler(c.uowFactory, c.publisher, c.logger)
}

// CreateCancelOrderCommandHandler builds the cancellation handler.
func (c *CompositionRoot) CreateCancelOrderCommandHandler() commands.CancelOrderCommandHandler {
	return commands.NewCancelOrderCommandHandler(c.uowFactory, c.publisher, c.logger)
}

// CreateGetOrderQueryHandler builds the single-order read handler.
func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB)
}

// CreateGetCustomerOrdersQueryHandler builds the customer history read handler.
func (c *CompositionRoot) CreateGetCustomerOrdersQueryHandler() queries.GetCustomerOrdersQueryHandler {
	return queries.NewGetCustomerOrdersQueryHandler(c.gormDB)
}

// CreateOrderEventListener builds the event queue listener on its own
// channel so its prefetch setting does not affect the publishers.
func (c *CompositionRoot) CreateOrderEventListener() (*inrabbit.Listener, error) {
	channel, err := c.amqpConn.Channel()
	if err != nil {
		return nil, err
	}

	handler := inrabbit.NewOrderEventHandler(c.logger)
	return inrabbit.NewListener(
		channel, c.config.Broker.EventQueue, handler, c.config.ShutdownGrace, c.logger), nil
}

// CreateBrokerHealthJob builds the connection probe job.
func (c *CompositionRoot) CreateBrokerHealthJob() *jobs.BrokerHealthJob {
	return jobs.NewBrokerHealthJob(c.amqpConn, c.logPub, c.logger)
}
