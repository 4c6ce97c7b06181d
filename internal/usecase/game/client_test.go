package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

type tap struct{ X, Y float64 }

type recordingTapper struct {
	taps   []tap
	failAt int // 1-based; 0 never fails
	err    error
}

func (r *recordingTapper) Tap(_ context.Context, x, y float64) error {
	if r.failAt > 0 && len(r.taps)+1 == r.failAt {
		return r.err
	}
	r.taps = append(r.taps, tap{x, y})
	return nil
}

func newTestClient(tp Tapper) (*Client, *[]time.Duration) {
	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	return NewClient(tp, config.Defaults().UI, WithSleep(sleep)), &pauses
}

func TestMenuActions(t *testing.T) {
	tests := []struct {
		name   string
		action func(*Client, context.Context) error
		want   []tap
		pauses int
	}{
		{"enter clan chat", (*Client).EnterClanChat, []tap{{480, 1215}, {685, 125}}, 1},
		{"create challenge", (*Client).CreateChallenge, []tap{{295, 1080}, {360, 360}}, 1},
		{"accept challenge", (*Client).AcceptChallenge, []tap{{565, 940}}, 0},
		{"exit game", (*Client).ExitGame, []tap{{360, 1160}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &recordingTapper{}
			c, pauses := newTestClient(tp)

			require.NoError(t, tt.action(c, context.Background()))
			assert.Equal(t, tt.want, tp.taps)
			assert.Len(t, *pauses, tt.pauses)
			for _, p := range *pauses {
				assert.Equal(t, time.Second, p)
			}
		})
	}
}

func TestMenuActionAbortsOnFailure(t *testing.T) {
	tp := &recordingTapper{failAt: 1, err: domain.ErrChannelBroken}
	c, pauses := newTestClient(tp)

	err := c.EnterClanChat(context.Background())
	require.ErrorIs(t, err, domain.ErrChannelBroken)
	assert.Empty(t, tp.taps, "second tap must not be sent")
	assert.Empty(t, *pauses)
}

func TestSelectCard(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	for pos := 1; pos <= 4; pos++ {
		require.NoError(t, c.SelectCard(context.Background(), pos))
	}
	assert.Equal(t, []tap{{223.75, 1150}, {361.25, 1150}, {498.75, 1150}, {636.25, 1150}}, tp.taps)
}

func TestSelectCardOutOfRange(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	for _, pos := range []int{0, 5, -1} {
		err := c.SelectCard(context.Background(), pos)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Equal(t, domain.CodeCardOutOfRange, domain.ErrorCodeOf(err))
	}
	assert.Empty(t, tp.taps)
}

func TestClickTile(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	require.NoError(t, c.ClickTile(context.Background(), domain.Tile{Col: 1, Row: 1}))
	assert.Equal(t, []tap{{67.25, 966.25}}, tp.taps)
}

func TestPlaceCard(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	err := c.PlaceCard(context.Background(), 2, domain.Tile{Col: 7, Row: 1}, domain.BothTowersAlive)
	require.NoError(t, err)
	require.Len(t, tp.taps, 2)
	assert.Equal(t, tap{361.25, 1150}, tp.taps[0])
	assert.Equal(t, tap{274.25, 966.25}, tp.taps[1])
}

func TestPlaceCardRejectsIllegalTile(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	err := c.PlaceCard(context.Background(), 1, domain.Tile{Col: 5, Row: 20}, domain.BothTowersAlive)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, domain.CodeTileNotPlaceable, domain.ErrorCodeOf(err))
	assert.Empty(t, tp.taps, "nothing is selected for an illegal tile")
}

func TestPlaceCardRejectsBadSlotBeforeTapping(t *testing.T) {
	tp := &recordingTapper{}
	c, _ := newTestClient(tp)

	err := c.PlaceCard(context.Background(), 9, domain.Tile{Col: 7, Row: 1}, domain.BothTowersAlive)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, tp.taps)
}

func TestPlaceCardStopsAfterFailedSelect(t *testing.T) {
	tp := &recordingTapper{failAt: 1, err: errors.New("write: broken pipe")}
	c, _ := newTestClient(tp)

	err := c.PlaceCard(context.Background(), 1, domain.Tile{Col: 7, Row: 1}, domain.BothTowersAlive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "game.SelectCard")
	assert.Empty(t, tp.taps)
}

func TestPauseCancelled(t *testing.T) {
	tp := &recordingTapper{}
	c := NewClient(tp, config.Defaults().UI)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.CreateChallenge(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tp.taps, 1)
}
