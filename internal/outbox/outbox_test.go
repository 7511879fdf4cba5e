package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/domain/outbox"
	"github.com/NordCoder/Recipebox/internal/obs/retry"
)

type fakeRepo struct {
	mu       sync.Mutex
	enqueued []outbox.Message
	batch    []outbox.Message
	pickErr  error
	marked   []string
}

func (f *fakeRepo) Enqueue(_ context.Context, m outbox.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, m)
	return nil
}

func (f *fakeRepo) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pickErr != nil {
		return nil, f.pickErr
	}
	out := f.batch
	f.batch = nil
	return out, nil
}

func (f *fakeRepo) MarkSuccess(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, keys...)
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	got   []notification.Registration
	fails int
}

func (p *fakePublisher) PublishAccountRegistered(_ context.Context, r notification.Registration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("broker unavailable")
	}
	p.got = append(p.got, r)
	return nil
}

func onceRetry() retry.Policy {
	return retry.Policy{Name: "test", Attempts: 1}
}

func TestRegistrationNotifier_Enqueue(t *testing.T) {
	repo := &fakeRepo{}
	reg := notification.Registration{AccountID: uuid.New(), Email: "a@b.c", VerifyToken: "v"}

	require.NoError(t, NewRegistrationNotifier(repo).NotifyRegistration(context.Background(), reg))
	require.Len(t, repo.enqueued, 1)

	m := repo.enqueued[0]
	assert.Equal(t, outbox.KindAccountRegistered, m.Kind)
	assert.Equal(t, "account.registered:"+reg.AccountID.String(), m.IdempotencyKey)

	var decoded notification.Registration
	require.NoError(t, json.Unmarshal(m.Data, &decoded))
	assert.Equal(t, reg.AccountID, decoded.AccountID)
	assert.Equal(t, "v", decoded.VerifyToken)
}

func TestGlobalHandler_UnknownKind(t *testing.T) {
	_, err := MakeGlobalHandler(&fakePublisher{}, onceRetry())(outbox.Kind(99))
	require.Error(t, err)
}

func TestGlobalHandler_BadPayloadIsPermanent(t *testing.T) {
	pub := &fakePublisher{}
	pol := retry.Policy{
		Name:      "test_permanent",
		Attempts:  5,
		Backoff:   retry.ExpoJitter{Base: time.Millisecond},
		Retryable: func(err error) bool { return !errors.Is(err, retry.ErrPermanent) },
	}
	h, err := MakeGlobalHandler(pub, pol)(outbox.KindAccountRegistered)
	require.NoError(t, err)

	err = h(context.Background(), []byte("nope"))
	require.ErrorIs(t, err, retry.ErrPermanent)
	assert.Empty(t, pub.got)
}

func TestGlobalHandler_RetriesTransientPublishErrors(t *testing.T) {
	pub := &fakePublisher{fails: 2}
	pol := retry.Policy{Name: "test_transient", Attempts: 3, Backoff: retry.ExpoJitter{Base: time.Millisecond}}
	h, err := MakeGlobalHandler(pub, pol)(outbox.KindAccountRegistered)
	require.NoError(t, err)

	data, _ := json.Marshal(notification.Registration{AccountID: uuid.New()})
	require.NoError(t, h(context.Background(), data))
	assert.Len(t, pub.got, 1)
}

func TestRunner_TickMarksOnlyHandled(t *testing.T) {
	good, _ := json.Marshal(notification.Registration{AccountID: uuid.New(), Email: "x@y.z"})
	repo := &fakeRepo{batch: []outbox.Message{
		{IdempotencyKey: "ok", Kind: outbox.KindAccountRegistered, Data: good},
		{IdempotencyKey: "bad-kind", Kind: outbox.Kind(42), Data: good},
		{IdempotencyKey: "bad-data", Kind: outbox.KindAccountRegistered, Data: []byte("{")},
	}}
	pub := &fakePublisher{}
	r := NewRunner(zap.NewNop(), repo, MakeGlobalHandler(pub, onceRetry()), RunnerConfig{})

	r.Tick(context.Background())

	assert.Equal(t, []string{"ok"}, repo.marked)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "x@y.z", pub.got[0].Email)
}

func TestRunner_PickErrorMarksNothing(t *testing.T) {
	repo := &fakeRepo{pickErr: errors.New("db down")}
	r := NewRunner(nil, repo, MakeGlobalHandler(&fakePublisher{}, onceRetry()), RunnerConfig{})
	r.Tick(context.Background())
	assert.Empty(t, repo.marked)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	r := NewRunner(nil, repo, MakeGlobalHandler(&fakePublisher{}, onceRetry()),
		RunnerConfig{Workers: 3, WaitTime: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
