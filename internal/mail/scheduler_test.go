package mail

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsunayoshi21/catitaycris-expenses-app/internal/notify"
	"github.com/tsunayoshi21/catitaycris-expenses-app/pkg/models"
)

type fakePoller struct {
	drafts []Draft
	err    error
	calls  atomic.Int32
}

func (f *fakePoller) Poll(_ context.Context, _ *models.Account) ([]Draft, error) {
	f.calls.Add(1)
	return f.drafts, f.err
}

type fakeNotifier struct {
	envelopes []notify.Envelope
}

func (f *fakeNotifier) Enqueue(env notify.Envelope) bool {
	f.envelopes = append(f.envelopes, env)
	return true
}

func testDraft(emailID string) Draft {
	sent := time.Date(2026, 8, 29, 17, 0, 0, 0, time.UTC)
	return Draft{
		EmailID:           emailID,
		Date:              time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC),
		Amount:            15990,
		Merchant:          "Comercio X",
		Type:              models.TypeDebit,
		SuggestedCategory: "supermercado",
		EmailDate:         &sent,
	}
}

func TestPollOncePersistsAndNotifies(t *testing.T) {
	db := newTestDB(t)
	_, user := seedAccountUser(t, db, "1000")

	poller := &fakePoller{drafts: []Draft{testDraft("<cargo-1@bancochile.cl>")}}
	notifier := &fakeNotifier{}
	s := NewScheduler(db, poller, notifier, time.Minute, discardLogger())

	created := s.PollOnce(context.Background())
	assert.Equal(t, 1, created)

	exists, err := db.TransactionExistsByEmailID(context.Background(), "<cargo-1@bancochile.cl>")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, notifier.envelopes, 1)
	env := notifier.envelopes[0]
	assert.Equal(t, "1000", env.ChatID)
	assert.Contains(t, env.Text, "Comercio X")
	assert.Contains(t, env.Text, "15,990")
	assert.Contains(t, env.Text, "#")

	tx, err := db.GetTransactionByID(context.Background(), env.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, tx.UserID)
	assert.False(t, tx.Completed())
}

func TestPollOnceSecondRoundIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedAccountUser(t, db, "1000")

	poller := &fakePoller{drafts: []Draft{testDraft("<cargo-1@bancochile.cl>")}}
	notifier := &fakeNotifier{}
	s := NewScheduler(db, poller, notifier, time.Minute, discardLogger())

	assert.Equal(t, 1, s.PollOnce(context.Background()))
	assert.Equal(t, 0, s.PollOnce(context.Background()))
	assert.Len(t, notifier.envelopes, 1, "a duplicate must never be re-notified")
}

func TestPollOnceUserWithoutChatID(t *testing.T) {
	db := newTestDB(t)
	seedAccountUser(t, db, "")

	poller := &fakePoller{drafts: []Draft{testDraft("<cargo-1@bancochile.cl>")}}
	notifier := &fakeNotifier{}
	s := NewScheduler(db, poller, notifier, time.Minute, discardLogger())

	created := s.PollOnce(context.Background())
	assert.Equal(t, 1, created, "the transaction is still persisted")
	assert.Empty(t, notifier.envelopes)
}

func TestPollOncePollerFailureIsContained(t *testing.T) {
	db := newTestDB(t)
	seedAccountUser(t, db, "1000")

	poller := &fakePoller{err: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	s := NewScheduler(db, poller, notifier, time.Minute, discardLogger())

	assert.Equal(t, 0, s.PollOnce(context.Background()))
	assert.Empty(t, notifier.envelopes)
}

func TestPollOnceSkipsDisabledAccounts(t *testing.T) {
	db := newTestDB(t)
	account, _ := seedAccountUser(t, db, "1000")
	require.NoError(t, db.SetAccountEnabled(context.Background(), account.ID, false))

	poller := &fakePoller{drafts: []Draft{testDraft("<cargo-1@bancochile.cl>")}}
	s := NewScheduler(db, poller, &fakeNotifier{}, time.Minute, discardLogger())

	assert.Equal(t, 0, s.PollOnce(context.Background()))
	assert.Zero(t, poller.calls.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	seedAccountUser(t, db, "1000")

	poller := &fakePoller{}
	s := NewScheduler(db, poller, &fakeNotifier{}, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return poller.calls.Load() > 0 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
