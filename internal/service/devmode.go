package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/companion/internal/config"
	"github.com/raphaelgruber/companion/internal/models"
	"github.com/raphaelgruber/companion/internal/state"
)

// DevMode is the password-gated developer panel for overriding the
// experimental condition.
type DevMode struct {
	api         ConditionAPI
	sess        *state.Session
	logger      *slog.Logger
	environment string
	password    string

	// OnChange is called after a successful override.
	OnChange func(models.Condition)
}

// NewDevMode creates the developer gate for the given environment.
func NewDevMode(api ConditionAPI, sess *state.Session, environment, password string, logger *slog.Logger) *DevMode {
	return &DevMode{
		api:         api,
		sess:        sess,
		logger:      loggerOrDefault(logger),
		environment: environment,
		password:    password,
	}
}

// Unlocked reports whether the panel is available without a password.
func (d *DevMode) Unlocked() bool {
	return d.environment == config.EnvDevelopment || d.sess.DeveloperMode()
}

// Unlock persists developer mode when password matches.
func (d *DevMode) Unlock(password string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(d.password)) != 1 {
		d.logger.Warn("developer unlock rejected")
		return ErrWrongPassword
	}
	if err := d.sess.SetDeveloperMode(true); err != nil {
		return fmt.Errorf("store developer mode: %w", err)
	}
	return nil
}

// Lock forgets a previous unlock. Development builds stay unlocked.
func (d *DevMode) Lock() error {
	if err := d.sess.SetDeveloperMode(false); err != nil {
		return fmt.Errorf("clear developer mode: %w", err)
	}
	return nil
}

// Conditions lists the conditions that can be selected.
func (d *DevMode) Conditions() []models.Condition {
	return models.AllConditions()
}

// SetCondition overrides the condition of userID on the server and locally.
// Nothing is re-fetched afterwards.
func (d *DevMode) SetCondition(ctx context.Context, userID string, c models.Condition) error {
	if !d.Unlocked() {
		return ErrLocked
	}
	if _, err := d.api.UpdateCondition(ctx, userID, c.ID()); err != nil {
		d.logger.Error("condition override failed", "user_id", userID, "condition", c, "error", err)
		return fmt.Errorf("update condition: %w", err)
	}
	if err := d.sess.SetCondition(c); err != nil {
		return fmt.Errorf("store condition: %w", err)
	}
	d.logger.Info("condition overridden", "user_id", userID, "condition", c)
	if d.OnChange != nil {
		d.OnChange(c)
	}
	return nil
}
