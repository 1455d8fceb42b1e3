package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/celerix-dev/celerix-canvas/internal/vault"
	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// Preferences holds the per-device records that are not boards: the logged-in
// user, the language and the sealed sticker-service credential.
// Reads never fail; absent or unreadable records mean "use the default".
type Preferences struct {
	backend Backend
	key     []byte
	logger  *slog.Logger
}

// NewPreferences binds preferences to a backend. vaultKey seals the credential.
func NewPreferences(backend Backend, vaultKey []byte, logger *slog.Logger) *Preferences {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{backend: backend, key: vaultKey, logger: logger}
}

func readRecord[T any](ctx context.Context, p *Preferences, key string) (T, bool) {
	var zero T
	if p.backend == nil {
		return zero, false
	}
	raw, err := p.backend.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.WarnContext(ctx, "could not read preference", "key", key, "error", err)
		}
		return zero, false
	}
	v, ok := schema.DecodeRecord[T](raw)
	if !ok {
		p.logger.WarnContext(ctx, "ignoring malformed preference", "key", key)
	}
	return v, ok
}

func (p *Preferences) writeRecord(ctx context.Context, key string, v any) error {
	if p.backend == nil {
		return nil
	}
	data, err := schema.EncodeRecord(v)
	if err != nil {
		return err
	}
	return p.backend.Write(ctx, key, data)
}

func (p *Preferences) deleteRecord(ctx context.Context, key string) error {
	if p.backend == nil {
		return nil
	}
	return p.backend.Delete(ctx, key)
}

// User returns the logged-in user. false means logged out.
func (p *Preferences) User(ctx context.Context) (schema.User, bool) {
	u, ok := readRecord[schema.User](ctx, p, KeyUser)
	if !ok || !u.Valid() {
		return schema.User{}, false
	}
	return u, true
}

func (p *Preferences) SaveUser(ctx context.Context, u schema.User) error {
	return p.writeRecord(ctx, KeyUser, u)
}

// ClearUser removes the user record. Boards are untouched.
func (p *Preferences) ClearUser(ctx context.Context) error {
	return p.deleteRecord(ctx, KeyUser)
}

// Language returns the stored locale code, or "" when none is stored.
func (p *Preferences) Language(ctx context.Context) string {
	code, _ := readRecord[string](ctx, p, KeyLanguage)
	return code
}

func (p *Preferences) SaveLanguage(ctx context.Context, code string) error {
	return p.writeRecord(ctx, KeyLanguage, code)
}

// Credential returns the sticker-service credential. false disables remote
// sticker generation.
func (p *Preferences) Credential(ctx context.Context) (string, bool) {
	sealed, ok := readRecord[string](ctx, p, KeyCredential)
	if !ok || sealed == "" {
		return "", false
	}
	secret, err := vault.Open(sealed, p.key)
	if err != nil {
		p.logger.WarnContext(ctx, "stored credential cannot be opened", "error", err)
		return "", false
	}
	return secret, secret != ""
}

func (p *Preferences) SaveCredential(ctx context.Context, secret string) error {
	sealed, err := vault.Seal(secret, p.key)
	if err != nil {
		return err
	}
	return p.writeRecord(ctx, KeyCredential, sealed)
}

func (p *Preferences) ClearCredential(ctx context.Context) error {
	return p.deleteRecord(ctx, KeyCredential)
}
