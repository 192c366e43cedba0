// Package command contains write operations (CQRS - Commands).
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
// UPDATE PREFERENCES COMMAND
// Persists the opt-out flags from the app's settings screen. The fan-out
// pipeline reads these flags on every broadcast; an explicit false is the
// only thing that suppresses delivery.
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePreferencesCommand contains the data to update preferences.
type UpdatePreferencesCommand struct {
	// EntrantID is the user whose flags to update.
	EntrantID entrant.ID

	// LotteryResults and OrganizerUpdates are the new flag values.
	// nil means "don't change".
	LotteryResults   *bool
	OrganizerUpdates *bool
}

// Validate validates the command.
func (c UpdatePreferencesCommand) Validate() error {
	if !c.EntrantID.IsValid() {
		return shared.NewDomainError("command", "UpdatePreferences", shared.ErrInvalidArgument,
			"entrant id is required")
	}
	if c.LotteryResults == nil && c.OrganizerUpdates == nil {
		return shared.NewDomainError("command", "UpdatePreferences", shared.ErrInvalidArgument,
			"no preference flags provided")
	}
	return nil
}

// UpdatePreferencesResult contains the result of updating preferences.
type UpdatePreferencesResult struct {
	// EntrantID is the user whose flags were updated.
	EntrantID entrant.ID

	// Preferences contains the final stored flags.
	Preferences user.Preferences

	// ChangedFields lists which flags were changed.
	ChangedFields []string

	// UpdatedAt is when the flags were written.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePreferencesHandler handles the UpdatePreferencesCommand.
type UpdatePreferencesHandler struct {
	profiles user.Repository
	writer   user.Writer
	cache    user.Cache // optional, nil disables invalidation
}

// NewUpdatePreferencesHandler creates a new UpdatePreferencesHandler.
func NewUpdatePreferencesHandler(
	profiles user.Repository,
	writer user.Writer,
	cache user.Cache,
) *UpdatePreferencesHandler {
	return &UpdatePreferencesHandler{
		profiles: profiles,
		writer:   writer,
		cache:    cache,
	}
}

// Handle executes the update preferences command.
func (h *UpdatePreferencesHandler) Handle(
	ctx context.Context,
	cmd UpdatePreferencesCommand,
) (*UpdatePreferencesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// A missing profile is a valid starting point: the first settings
	// write creates it.
	profile, err := h.profiles.FindByEntrantID(ctx, cmd.EntrantID)
	if err != nil {
		return nil, shared.WrapError("command", "UpdatePreferences", shared.ErrStorageRead,
			"loading profile", err)
	}

	prefs := user.Preferences{}
	if profile != nil {
		for k, v := range profile.Preferences {
			prefs[k] = v
		}
	}

	changed := make([]string, 0, 2)
	if cmd.LotteryResults != nil {
		if cur, ok := prefs[user.PrefLotteryResults]; !ok || cur != *cmd.LotteryResults {
			changed = append(changed, user.PrefLotteryResults)
		}
		prefs[user.PrefLotteryResults] = *cmd.LotteryResults
	}
	if cmd.OrganizerUpdates != nil {
		if cur, ok := prefs[user.PrefOrganizerUpdates]; !ok || cur != *cmd.OrganizerUpdates {
			changed = append(changed, user.PrefOrganizerUpdates)
		}
		prefs[user.PrefOrganizerUpdates] = *cmd.OrganizerUpdates
	}

	if len(changed) > 0 {
		if err := h.writer.SavePreferences(ctx, cmd.EntrantID, prefs); err != nil {
			return nil, shared.WrapError("command", "UpdatePreferences", shared.ErrStorageWrite,
				"saving preferences", err)
		}
		if h.cache != nil {
			_ = h.cache.Invalidate(ctx, cmd.EntrantID)
		}
	}

	return &UpdatePreferencesResult{
		EntrantID:     cmd.EntrantID,
		Preferences:   prefs,
		ChangedFields: changed,
		UpdatedAt:     timeutil.Now(),
	}, nil
}
