package ledger

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/shared"
)

// CommandHandler executes one use case. Implementations load the aggregate,
// invoke exactly one domain method and persist the resulting events.
type CommandHandler interface {
	CommandName() string
	Handle(ctx context.Context, cmd Command) (*CommandResult, error)
}

// Registry routes commands to their handlers. It is an explicit map built at
// startup; registering the same command name twice is a wiring bug and
// panics there rather than surfacing at request time.
type Registry struct {
	validate *validator.Validate
	handlers map[string]CommandHandler
	logger   *zap.Logger
}

// NewRegistry creates an empty command registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		validate: validator.New(),
		handlers: make(map[string]CommandHandler),
		logger:   logger,
	}
}

// Register adds a handler to the registry.
func (r *Registry) Register(handlers ...CommandHandler) {
	for _, h := range handlers {
		name := h.CommandName()
		if _, exists := r.handlers[name]; exists {
			panic(fmt.Sprintf("command handler already registered: %s", name))
		}
		r.handlers[name] = h
	}
}

// Dispatch validates the command's shape and routes it to its handler.
// Validation failures are rejected before any aggregate is touched.
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (*CommandResult, error) {
	if err := r.validate.Struct(cmd); err != nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, err.Error())
	}

	handler, ok := r.handlers[cmd.CommandName()]
	if !ok {
		return nil, fmt.Errorf("no handler registered for command %s", cmd.CommandName())
	}

	result, err := handler.Handle(ctx, cmd)
	if err != nil {
		r.logger.Debug("command rejected",
			zap.String("command", cmd.CommandName()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// errWrongCommand reports a mismatch between registry key and handler; it
// can only happen through a registration bug.
func errWrongCommand(handler string, cmd Command) error {
	return fmt.Errorf("%s received command %T", handler, cmd)
}
