package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-companion-store/internal/domain"
)

func TestCurrentConfig_DefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	cs := newConfig(t, newKV(t))

	cfg, err := cs.GetCurrentConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, cs.Defaults, cfg)

	model := "gpt-other"
	cfg, err = cs.UpdateCurrentConfig(ctx, APIConfigUpdate{Model: &model})
	require.NoError(t, err)
	require.Equal(t, "gpt-other", cfg.Model)
	require.Equal(t, 512, cfg.MaxTokens)

	zero := 0
	_, err = cs.UpdateCurrentConfig(ctx, APIConfigUpdate{MaxTokens: &zero})
	require.ErrorIs(t, err, ErrInvalidConfig)

	got, err := cs.GetCurrentConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "gpt-other", got.Model)
	require.Equal(t, 512, got.MaxTokens)
}

func TestPresets_Lifecycle(t *testing.T) {
	ctx := context.Background()
	cs := newConfig(t, newKV(t))

	list, err := cs.ListPresets(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	fast := domain.APIConfig{Provider: "openai", Model: "fast", MaxTokens: 128}
	p, err := cs.SavePreset(ctx, "Fast", fast)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	_, err = cs.SavePreset(ctx, "Fast", fast)
	require.ErrorIs(t, err, ErrDuplicateName)
	_, err = cs.SavePreset(ctx, "Broken", domain.APIConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	slow, err := cs.SavePreset(ctx, "Slow", domain.APIConfig{Model: "slow", MaxTokens: 4096})
	require.NoError(t, err)

	name := "Fast"
	_, err = cs.UpdatePreset(ctx, slow.ID, PresetUpdate{Name: &name})
	require.ErrorIs(t, err, ErrDuplicateName)

	temp := 0.2
	up, err := cs.UpdatePreset(ctx, slow.ID, PresetUpdate{APIConfigUpdate: APIConfigUpdate{Temperature: &temp}})
	require.NoError(t, err)
	require.Equal(t, 0.2, up.Temperature)

	cfg, err := cs.LoadPreset(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, fast, cfg)
	cur, err := cs.GetCurrentConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, fast, cur)

	_, err = cs.LoadPreset(ctx, "preset_missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, cs.DeletePreset(ctx, p.ID))
	require.NoError(t, cs.DeletePreset(ctx, p.ID))
	list, err = cs.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Slow", list[0].Name)
}

func TestVoiceAndUserSettings(t *testing.T) {
	ctx := context.Background()
	cs := newConfig(t, newKV(t))

	vc, err := cs.GetVoiceConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.VoiceConfig{}, vc)

	want := domain.VoiceConfig{Enabled: true, Provider: "minimax", VoiceID: "v1", Speed: 1.2}
	require.NoError(t, cs.SaveVoiceConfig(ctx, want))
	vc, err = cs.GetVoiceConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, want, vc)

	require.ErrorIs(t, cs.SaveVoiceConfig(ctx, domain.VoiceConfig{Speed: -1}), ErrInvalidConfig)

	us := domain.UserSettings{Nickname: "me", Language: "en"}
	require.NoError(t, cs.SaveUserSettings(ctx, us))
	got, err := cs.GetUserSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, us, got)
}
