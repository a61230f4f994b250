package sheetdb

import "context"

// TokenSource yields the bearer credential for one call. It is consulted
// fresh on every request so a token change takes effect on the very next
// call without a restart.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// SettingGetter is the slice of the settings store the token source needs.
type SettingGetter interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

const apiTokenKey = "apiToken"

// SettingsTokenSource reads the user-supplied token from settings and
// falls back to the build-time token when none is stored. Storage errors
// also fall back: a degraded local store must not block remote calls.
type SettingsTokenSource struct {
	Settings SettingGetter
	Fallback string
}

func (s SettingsTokenSource) Token(ctx context.Context) (string, error) {
	if s.Settings != nil {
		token, err := s.Settings.GetSetting(ctx, apiTokenKey)
		if err == nil && token != "" {
			return token, nil
		}
	}
	return s.Fallback, nil
}

// StaticToken is a fixed-token source, used by the CLI and in tests.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
