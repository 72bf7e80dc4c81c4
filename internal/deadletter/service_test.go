package deadletter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu sync.Mutex

	rows    map[string]*WebhookDeadLetter
	retried map[string]string
	deleted []string
}

func newMemoryStore(rows ...WebhookDeadLetter) *memoryStore {
	store := &memoryStore{rows: map[string]*WebhookDeadLetter{}, retried: map[string]string{}}
	for i := range rows {
		row := rows[i]
		store.rows[row.ID] = &row
	}

	return store
}

func (store *memoryStore) CreateDeadLetter(_ context.Context, callID string, body []byte, errMsg string) (*WebhookDeadLetter, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := &WebhookDeadLetter{ID: "dl-" + callID, CallID: callID, Payload: body, Error: errMsg, Status: StatusPending}
	store.rows[row.ID] = row

	return row, nil
}

func (store *memoryStore) GetPendingDeadLetters(_ context.Context) ([]WebhookDeadLetter, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var pending []WebhookDeadLetter

	for _, row := range store.rows {
		if row.Status == StatusPending {
			pending = append(pending, *row)
		}
	}

	return pending, nil
}

func (store *memoryStore) MarkInProgress(_ context.Context, deadLetter *WebhookDeadLetter) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row, ok := store.rows[deadLetter.ID]
	if !ok || row.Status != StatusPending {
		return false, nil
	}

	row.Status = StatusInProgress
	deadLetter.Status = StatusInProgress

	return true, nil
}

func (store *memoryStore) IncreaseRetryCount(ctx context.Context, deadLetter *WebhookDeadLetter, errMsg string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.rows[deadLetter.ID]
	row.RetryCount++
	row.Status = StatusPending
	row.Error = errMsg
	store.retried[row.ID] = errMsg

	return nil
}

func (store *memoryStore) DeleteDeadLetter(ctx context.Context, deadLetter *WebhookDeadLetter) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.rows, deadLetter.ID)
	store.deleted = append(store.deleted, deadLetter.ID)

	return nil
}

type stubProcessor struct {
	mu    sync.Mutex
	err   error
	seen  []payload.Payload
	calls sync.WaitGroup
}

func (processor *stubProcessor) Process(_ context.Context, p payload.Payload) (*webhook.Outcome, error) {
	defer processor.calls.Done()

	processor.mu.Lock()
	processor.seen = append(processor.seen, p)
	processor.mu.Unlock()

	if processor.err != nil {
		return nil, processor.err
	}

	return &webhook.Outcome{CallLog: &calllog.CallLog{LogID: payload.CallID(p)}}, nil
}

func TestMarkDelivery(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, &stubProcessor{}, nil)

	err := service.MarkDelivery(context.Background(), "call-001", []byte(`{"id":"call-001"}`), "database is down")
	require.NoError(t, err)

	row := store.rows["dl-call-001"]
	require.NotNil(t, row)
	assert.Equal(t, StatusPending, row.Status)
	assert.Equal(t, "database is down", row.Error)
}

func TestMarkDelivery_DropsNULEscapes(t *testing.T) {
	store := newMemoryStore()
	service := NewService(store, &stubProcessor{}, nil)

	err := service.MarkDelivery(context.Background(), "call-001", []byte(`{"id":"call-001","note":"a\u0000b"}`), "boom")
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"call-001","note":"ab"}`, string(store.rows["dl-call-001"].Payload))
}

func TestProcessDeadLetter_StoppedWorkerReleasesClaim(t *testing.T) {
	store := newMemoryStore(WebhookDeadLetter{
		ID: "dl-1", CallID: "call-001", Payload: []byte(`{"id":"call-001"}`), Status: StatusPending,
	})
	processor := &stubProcessor{err: context.Canceled}
	processor.calls.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewService(store, processor, nil).ProcessDeadLetter(ctx, &WebhookDeadLetter{ID: "dl-1", CallID: "call-001", Payload: []byte(`{"id":"call-001"}`)})

	row := store.rows["dl-1"]
	require.NotNil(t, row)
	assert.Equal(t, StatusPending, row.Status)
	assert.Equal(t, 1, row.RetryCount)
}

func TestProcessDeadLetter_SuccessDeletesRow(t *testing.T) {
	store := newMemoryStore(WebhookDeadLetter{
		ID: "dl-1", CallID: "call-001", Payload: []byte(`{"id":"call-001"}`), Status: StatusPending,
	})
	processor := &stubProcessor{}
	processor.calls.Add(1)

	var replayed []string
	service := NewService(store, processor, func(_ context.Context, outcome *webhook.Outcome) {
		replayed = append(replayed, outcome.CallLog.LogID)
	})

	deadLetter := *store.rows["dl-1"]
	service.ProcessDeadLetter(context.Background(), &deadLetter)

	assert.Equal(t, []string{"dl-1"}, store.deleted)
	assert.Equal(t, []string{"call-001"}, replayed)
	require.Len(t, processor.seen, 1)
	assert.Equal(t, "call-001", payload.CallID(processor.seen[0]))
}

func TestProcessDeadLetter_FailureSchedulesRetry(t *testing.T) {
	store := newMemoryStore(WebhookDeadLetter{
		ID: "dl-1", CallID: "call-001", Payload: []byte(`{"id":"call-001"}`), Status: StatusPending,
	})
	processor := &stubProcessor{err: errors.New("call log unavailable")}
	processor.calls.Add(1)
	service := NewService(store, processor, nil)

	deadLetter := *store.rows["dl-1"]
	service.ProcessDeadLetter(context.Background(), &deadLetter)

	assert.Empty(t, store.deleted)
	assert.Equal(t, "call log unavailable", store.retried["dl-1"])
	assert.Equal(t, 1, store.rows["dl-1"].RetryCount)
	assert.Equal(t, StatusPending, store.rows["dl-1"].Status)
}

func TestProcessDeadLetter_SkipsRowClaimedElsewhere(t *testing.T) {
	store := newMemoryStore(WebhookDeadLetter{
		ID: "dl-1", Payload: []byte(`{}`), Status: StatusInProgress,
	})
	processor := &stubProcessor{}
	service := NewService(store, processor, nil)

	deadLetter := *store.rows["dl-1"]
	service.ProcessDeadLetter(context.Background(), &deadLetter)

	assert.Empty(t, processor.seen)
	assert.Empty(t, store.deleted)
	assert.Empty(t, store.retried)
}

func TestProcessDeadLetter_CorruptPayload(t *testing.T) {
	store := newMemoryStore(WebhookDeadLetter{
		ID: "dl-1", Payload: []byte(`[1,2,3]`), Status: StatusPending,
	})
	processor := &stubProcessor{}
	service := NewService(store, processor, nil)

	deadLetter := *store.rows["dl-1"]
	service.ProcessDeadLetter(context.Background(), &deadLetter)

	assert.Empty(t, processor.seen)
	assert.Contains(t, store.retried, "dl-1")
}

func TestWorkerProcessPending(t *testing.T) {
	store := newMemoryStore(
		WebhookDeadLetter{ID: "dl-1", CallID: "call-001", Payload: []byte(`{"id":"call-001"}`), Status: StatusPending},
		WebhookDeadLetter{ID: "dl-2", CallID: "call-002", Payload: []byte(`{"id":"call-002"}`), Status: StatusPending},
		WebhookDeadLetter{ID: "dl-3", CallID: "call-003", Payload: []byte(`{"id":"call-003"}`), Status: StatusInProgress},
	)
	processor := &stubProcessor{}
	processor.calls.Add(2)

	pool, err := ants.NewPool(2)
	require.NoError(t, err)

	worker := &DeadLetterWorker{
		WorkerPool: pool,
		DLService:  NewService(store, processor, nil),
		Interval:   time.Minute,
	}
	defer worker.Close()

	worker.ProcessPending(context.Background())
	processor.calls.Wait()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()

		return len(store.deleted) == 2
	}, time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.ElementsMatch(t, []string{"dl-1", "dl-2"}, store.deleted)
	assert.Contains(t, store.rows, "dl-3")
}
