package cli

import (
	"context"
	"errors"

	"relief/internal/backend"
	"relief/internal/config"
	applog "relief/internal/log"
	"relief/internal/services"
)

// Session is a loaded engine and what it holds open.
type Session struct {
	Engine *services.Engine
	Report services.LoadReport
	Close  func() error
}

// Opener produces a loaded session for one command invocation.
type Opener func(ctx context.Context) (*Session, error)

// OpenEngine builds the configured store (and publisher, when AMQP is set),
// then loads the engine from it. Load warnings are returned in the report,
// not as errors.
func OpenEngine(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts ...services.Option) (*Session, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}

	factory := backend.NewFactory(logger)
	stores, err := factory.CreateStore(ctx, bc)
	if err != nil {
		return nil, err
	}
	cleanups := []backend.CleanupFunc{stores.Cleanup}

	opts = append([]services.Option{services.WithLogger(logger)}, opts...)
	publisher, err := factory.CreatePublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Continuing without event publishing",
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err)
	} else if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
		cleanups = append([]backend.CleanupFunc{publisher.Close}, cleanups...)
	}

	engine := services.NewEngine(stores.Store, opts...)
	report, err := engine.Load(ctx)
	if err != nil {
		return nil, errors.Join(err, backend.Cleanups(cleanups...))
	}
	return &Session{
		Engine: engine,
		Report: report,
		Close:  func() error { return backend.Cleanups(cleanups...) },
	}, nil
}
