package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fairchance/notification-service/internal/domain/entrant"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements user.Repository and user.Writer for
// PostgreSQL. Preferences are stored as a JSONB map of explicit flags; keys
// that were never written stay absent, which the domain treats as "allowed".
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// FindByEntrantID returns the profile, or (nil, nil) when none is stored.
func (r *ProfileRepository) FindByEntrantID(ctx context.Context, id entrant.ID) (*user.Profile, error) {
	query := `
		SELECT entrant_id, delivery_token, preferences
		FROM user_profiles
		WHERE entrant_id = $1
	`

	var (
		profile   user.Profile
		prefsJSON []byte
	)
	err := r.conn.QueryRow(ctx, query, id.String()).Scan(
		&profile.EntrantID,
		&profile.DeliveryToken,
		&prefsJSON,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, shared.WrapError("postgres", "FindProfile", shared.ErrStorageRead,
			fmt.Sprintf("reading profile %s", id), err)
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &profile.Preferences); err != nil {
			return nil, shared.WrapError("postgres", "FindProfile", shared.ErrStorageRead,
				"unmarshaling preferences", err)
		}
	}

	return &profile, nil
}

// SavePreferences replaces the stored opt-out flags, creating the profile
// row on first write.
func (r *ProfileRepository) SavePreferences(ctx context.Context, id entrant.ID, prefs user.Preferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return shared.WrapError("postgres", "SavePreferences", shared.ErrStorageWrite,
			"marshaling preferences", err)
	}

	query := `
		INSERT INTO user_profiles (entrant_id, preferences, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (entrant_id) DO UPDATE SET
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.conn.Exec(ctx, query, id.String(), prefsJSON, time.Now().UTC()); err != nil {
		return shared.WrapError("postgres", "SavePreferences", shared.ErrStorageWrite,
			fmt.Sprintf("saving preferences for %s", id), err)
	}

	return nil
}

// SaveDeliveryToken replaces the stored delivery token, creating the profile
// row on first write. An empty token unregisters the device.
func (r *ProfileRepository) SaveDeliveryToken(ctx context.Context, id entrant.ID, token string) error {
	query := `
		INSERT INTO user_profiles (entrant_id, delivery_token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (entrant_id) DO UPDATE SET
			delivery_token = EXCLUDED.delivery_token,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.conn.Exec(ctx, query, id.String(), token, time.Now().UTC()); err != nil {
		return shared.WrapError("postgres", "SaveDeliveryToken", shared.ErrStorageWrite,
			fmt.Sprintf("saving delivery token for %s", id), err)
	}

	return nil
}
