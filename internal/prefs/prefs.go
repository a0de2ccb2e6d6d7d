// Package prefs persists the client's display preferences.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/labres/internal/store"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language is a supported UI language.
type Language struct {
	Code string
	Name string
}

// Languages lists the supported languages, default first.
var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "sk", Name: "Slovenčina"},
}

func lookupLanguage(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Theme returns the saved theme, or light when none (or an unknown value)
// is stored.
func (s *Service) Theme(ctx context.Context) (Theme, error) {
	v, err := s.get(ctx, store.KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if Theme(v) == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

func (s *Service) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return fmt.Errorf("prefs: unknown theme %q", t)
	}
	return s.store.Set(ctx, store.KeyTheme, string(t))
}

// ToggleTheme flips between light and dark and returns the new theme. The
// read and the write share one transaction.
func (s *Service) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	err := s.store.WithTx(ctx, func(tx store.KV) error {
		v, err := tx.Get(ctx, store.KeyTheme)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if Theme(v) == ThemeDark {
			next = ThemeLight
		}
		return tx.Set(ctx, store.KeyTheme, string(next))
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// Language returns the saved language, falling back to the default.
func (s *Service) Language(ctx context.Context) (Language, error) {
	v, err := s.get(ctx, store.KeyLanguage)
	if err != nil {
		return Languages[0], err
	}
	if l, ok := lookupLanguage(v); ok {
		return l, nil
	}
	return Languages[0], nil
}

// SetLanguage switches to code. Unknown codes are ignored: the current
// language is returned with changed == false.
func (s *Service) SetLanguage(ctx context.Context, code string) (lang Language, changed bool, err error) {
	l, ok := lookupLanguage(code)
	if !ok {
		cur, err := s.Language(ctx)
		return cur, false, err
	}
	if err := s.store.Set(ctx, store.KeyLanguage, l.Code); err != nil {
		return Language{}, false, err
	}
	return l, true, nil
}

// Reset removes both preferences.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.WithTx(ctx, func(tx store.KV) error {
		if err := tx.Delete(ctx, store.KeyTheme); err != nil {
			return err
		}
		return tx.Delete(ctx, store.KeyLanguage)
	})
}

func (s *Service) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return v, err
}
