package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kino-bot/internal/logging"
)

type staticRecipients struct {
	ids []int64
	err error
}

func (s staticRecipients) ListUserIDs(context.Context) ([]int64, error) {
	return s.ids, s.err
}

type recordingDeliverer struct {
	mu      sync.Mutex
	failFor map[int64]bool
	order   []int64
	onSend  func(int64)
}

func (d *recordingDeliverer) DeliverText(_ context.Context, chatID int64, _ string) error {
	d.mu.Lock()
	d.order = append(d.order, chatID)
	d.mu.Unlock()
	if d.onSend != nil {
		d.onSend(chatID)
	}
	if d.failFor[chatID] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	return nil
}

func TestRun_CountsFailuresAndContinues(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	cases := []map[int64]bool{
		{},
		{1: true},
		{7: true},
		{2: true, 4: true, 6: true},
		{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true},
	}

	for _, failFor := range cases {
		d := &recordingDeliverer{failFor: failFor}
		b := New(staticRecipients{ids: ids}, d, 0, nil, logging.Discard())

		res, err := b.Run(context.Background(), "hello")
		require.NoError(t, err)

		assert.Equal(t, len(ids), res.Total)
		assert.Equal(t, len(failFor), res.Failed)
		assert.Equal(t, len(ids)-len(failFor), res.Sent)
		assert.Equal(t, ids, d.order, "delivery order follows recipients")
		assert.NotEmpty(t, res.JobID)
	}
}

func TestRun_EmptyAudience(t *testing.T) {
	b := New(staticRecipients{}, &recordingDeliverer{}, 0, nil, logging.Discard())

	res, err := b.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Sent)
	assert.Zero(t, res.Failed)
}

func TestRun_RecipientError(t *testing.T) {
	b := New(staticRecipients{err: errors.New("db down")}, &recordingDeliverer{}, 0, nil, logging.Discard())

	_, err := b.Run(context.Background(), "hello")
	require.Error(t, err)
}

func TestRun_CancelledMidwayKeepsTotals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &recordingDeliverer{onSend: func(id int64) {
		if id == 2 {
			cancel()
		}
	}}
	b := New(staticRecipients{ids: []int64{1, 2, 3, 4}}, d, 0, nil, logging.Discard())

	res, err := b.Run(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []int64{1, 2}, d.order)
}

func TestRun_PacesSends(t *testing.T) {
	b := New(staticRecipients{ids: []int64{1, 2, 3}}, &recordingDeliverer{}, 20*time.Millisecond, nil, logging.Discard())

	res, err := b.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Duration, 40*time.Millisecond)
}
