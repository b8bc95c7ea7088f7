package guild

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/EasterCompany/dex-leveling-service/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memSettings struct {
	channels map[string]string
	err      error
}

func (m *memSettings) LevelUpChannel(_ context.Context, guildID string) (string, error) {
	return m.channels[guildID], m.err
}

func (m *memSettings) SetLevelUpChannel(_ context.Context, guildID, channelID string) error {
	if m.channels == nil {
		m.channels = map[string]string{}
	}
	if channelID == "" {
		delete(m.channels, guildID)
		return nil
	}
	m.channels[guildID] = channelID
	return nil
}

func newResolver() (*Resolver, *memSettings, *fakes.Channels) {
	settings := &memSettings{}
	channels := &fakes.Channels{
		Owners:   map[string]string{"levels": "g1", "sys": "g1", "general": "g1", "elsewhere": "g2"},
		System:   map[string]string{"g1": "sys"},
		Writable: map[string]string{"g1": "general", "g3": "lobby"},
	}
	return NewResolver(settings, channels, discard), settings, channels
}

func TestAnnouncementChannel_Fallbacks(t *testing.T) {
	ctx := context.Background()
	r, _, channels := newResolver()

	require.NoError(t, r.Configure(ctx, "g1", "levels"))
	got, err := r.AnnouncementChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "levels", got)

	require.NoError(t, r.Disable(ctx, "g1"))
	got, err = r.AnnouncementChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "sys", got)

	delete(channels.System, "g1")
	got, err = r.AnnouncementChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "general", got)

	got, err = r.AnnouncementChannel(ctx, "g9")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnnouncementChannel_DeletedConfiguredChannel(t *testing.T) {
	ctx := context.Background()
	r, _, channels := newResolver()

	require.NoError(t, r.Configure(ctx, "g1", "levels"))
	delete(channels.Owners, "levels")

	got, err := r.AnnouncementChannel(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "sys", got)
}

func TestAnnouncementChannel_SettingsErrorFallsBack(t *testing.T) {
	r, settings, _ := newResolver()
	settings.err = errors.New("store down")

	got, err := r.AnnouncementChannel(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "sys", got)
}

func TestConfigure_RejectsForeignChannel(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newResolver()

	err := r.Configure(ctx, "g1", "elsewhere")
	assert.ErrorIs(t, err, ErrForeignChannel)

	err = r.Configure(ctx, "g1", "unknown")
	assert.ErrorIs(t, err, ErrForeignChannel)

	got, err := r.Configured(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
