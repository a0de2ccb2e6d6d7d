package prefs_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/labres/internal/prefs"
	"github.com/aussiebroadwan/labres/internal/store"
	"github.com/aussiebroadwan/labres/internal/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestTheme(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := prefs.NewService(st)

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeLight, theme)

	theme, err = svc.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeDark, theme)

	v, err := st.Get(ctx, store.KeyTheme)
	require.NoError(t, err)
	require.Equal(t, "dark", v)

	theme, err = svc.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeLight, theme)

	require.Error(t, svc.SetTheme(ctx, "sepia"))

	// A corrupt stored value reads as the default.
	require.NoError(t, st.Set(ctx, store.KeyTheme, "sepia"))
	theme, err = svc.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, prefs.ThemeLight, theme)
}

func TestLanguage(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := prefs.NewService(st)

	lang, err := svc.Language(ctx)
	require.NoError(t, err)
	require.Equal(t, "en", lang.Code)

	lang, changed, err := svc.SetLanguage(ctx, "sk")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "Slovenčina", lang.Name)

	lang, changed, err = svc.SetLanguage(ctx, "de")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, "sk", lang.Code)

	v, err := st.Get(ctx, store.KeyLanguage)
	require.NoError(t, err)
	require.Equal(t, "sk", v)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := prefs.NewService(st)

	require.NoError(t, svc.SetTheme(ctx, prefs.ThemeDark))
	_, _, err := svc.SetLanguage(ctx, "sk")
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, store.KeyRefreshToken, "rt-1"))

	require.NoError(t, svc.Reset(ctx))

	_, err = st.Get(ctx, store.KeyTheme)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, store.KeyLanguage)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The session is not a preference.
	v, err := st.Get(ctx, store.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "rt-1", v)
}
