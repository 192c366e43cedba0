package command

import (
	"context"
	"time"

	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/internal/domain/user"
	"github.com/fairchance/notification-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER DEVICE COMMAND
// Stores the delivery token the push gateway issued to the user's device.
// The client calls this on sign-in and whenever the gateway rotates the
// token. One token per user: a new device replaces the old one.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterDeviceCommand contains the data to register a device.
type RegisterDeviceCommand struct {
	// EntrantID is the user the device belongs to.
	EntrantID entrant.ID

	// DeliveryToken is the gateway-issued token. Empty unregisters the
	// device; fan-outs then count the user per the missing-token policy.
	DeliveryToken string
}

// Validate validates the command.
func (c RegisterDeviceCommand) Validate() error {
	if !c.EntrantID.IsValid() {
		return shared.NewDomainError("command", "RegisterDevice", shared.ErrInvalidArgument,
			"entrant id is required")
	}
	return nil
}

// RegisterDeviceResult contains the result of registering a device.
type RegisterDeviceResult struct {
	// EntrantID is the user the device was registered for.
	EntrantID entrant.ID

	// Registered is false when the command unregistered the device.
	Registered bool

	// UpdatedAt is when the token was written.
	UpdatedAt time.Time
}

// RegisterDeviceHandler handles the RegisterDeviceCommand.
type RegisterDeviceHandler struct {
	writer user.Writer
	cache  user.Cache // optional, nil disables invalidation
}

// NewRegisterDeviceHandler creates a new RegisterDeviceHandler.
func NewRegisterDeviceHandler(writer user.Writer, cache user.Cache) *RegisterDeviceHandler {
	return &RegisterDeviceHandler{writer: writer, cache: cache}
}

// Handle executes the register device command.
func (h *RegisterDeviceHandler) Handle(
	ctx context.Context,
	cmd RegisterDeviceCommand,
) (*RegisterDeviceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if err := h.writer.SaveDeliveryToken(ctx, cmd.EntrantID, cmd.DeliveryToken); err != nil {
		return nil, shared.WrapError("command", "RegisterDevice", shared.ErrStorageWrite,
			"saving delivery token", err)
	}
	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, cmd.EntrantID)
	}

	return &RegisterDeviceResult{
		EntrantID:  cmd.EntrantID,
		Registered: cmd.DeliveryToken != "",
		UpdatedAt:  timeutil.Now(),
	}, nil
}
