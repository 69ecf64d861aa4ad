package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/outbox/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
	"github.com/allisson/conversions/internal/testutil"
)

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (m *passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeDeliveryRepo provides an in-memory pending queue and records the order
// of repository calls.
type fakeDeliveryRepo struct {
	pending       []*domain.Delivery
	moved         int64
	delivered     []string
	failed        []string
	failMessages  []string
	callOrder     []string
	fetchErr      error
	moveErr       error
	requestedMax  int
	requestedSize int
}

func (r *fakeDeliveryRepo) FetchPending(_ context.Context, limit int) ([]*domain.Delivery, error) {
	r.callOrder = append(r.callOrder, "fetch")
	r.requestedSize = limit
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if limit > len(r.pending) {
		limit = len(r.pending)
	}
	return r.pending[:limit], nil
}

func (r *fakeDeliveryRepo) MarkDelivered(_ context.Context, eventID string, platform outcomedomain.Platform, _ string) error {
	r.delivered = append(r.delivered, eventID+"/"+platform.String())
	return nil
}

func (r *fakeDeliveryRepo) MarkFailed(_ context.Context, eventID string, platform outcomedomain.Platform, message string) error {
	r.failed = append(r.failed, eventID+"/"+platform.String())
	r.failMessages = append(r.failMessages, message)
	return nil
}

func (r *fakeDeliveryRepo) MoveToDeadLetter(_ context.Context, maxRetries int) (int64, error) {
	r.callOrder = append(r.callOrder, "dead_letter")
	r.requestedMax = maxRetries
	if r.moveErr != nil {
		return 0, r.moveErr
	}
	return r.moved, nil
}

// fakeWriter is a scripted write port.
type fakeWriter struct {
	platform outcomedomain.Platform
	sendErr  error
	sent     []adsdomain.Payload
}

func (w *fakeWriter) Platform() outcomedomain.Platform { return w.platform }

func (w *fakeWriter) SendEvent(_ context.Context, payload adsdomain.Payload) (map[string]any, error) {
	if w.sendErr != nil {
		return nil, w.sendErr
	}
	w.sent = append(w.sent, payload)
	return map[string]any{"events_received": 1}, nil
}

func (w *fakeWriter) SendEventBatch(ctx context.Context, payloads []adsdomain.Payload) ([]map[string]any, error) {
	results := make([]map[string]any, 0, len(payloads))
	for _, payload := range payloads {
		result, err := w.SendEvent(ctx, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (w *fakeWriter) ValidateEvent(_ context.Context, _ adsdomain.Payload) (map[string]any, error) {
	return map[string]any{"valid": true}, nil
}

// fakeRegistry resolves writers from a static map.
type fakeRegistry struct {
	writers map[outcomedomain.Platform]adsdomain.AdsWritePort
}

func (r *fakeRegistry) Writer(platform outcomedomain.Platform) adsdomain.AdsWritePort {
	return r.writers[platform]
}

func buildDelivery(t *testing.T, platform outcomedomain.Platform) *domain.Delivery {
	t.Helper()

	event := testutil.BuildOutcomeEvent(t)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return &domain.Delivery{
		EventID:  event.EventID,
		Platform: platform,
		Status:   domain.DeliveryStatusPending,
		Payload:  string(payload),
	}
}

func newPublisher(repo *fakeDeliveryRepo, registry *fakeRegistry) *PublisherUseCase {
	config := Config{Interval: time.Millisecond, BatchSize: 50, MaxRetries: 5}
	return NewPublisherUseCase(config, &passthroughTxManager{}, repo, registry, nil, nil)
}

func TestPublisherExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes-pending-rows", func(t *testing.T) {
		repo := &fakeDeliveryRepo{pending: []*domain.Delivery{
			buildDelivery(t, outcomedomain.PlatformMeta),
			buildDelivery(t, outcomedomain.PlatformTikTok),
		}}
		writerMeta := &fakeWriter{platform: outcomedomain.PlatformMeta}
		writerTikTok := &fakeWriter{platform: outcomedomain.PlatformTikTok}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{
			outcomedomain.PlatformMeta:   writerMeta,
			outcomedomain.PlatformTikTok: writerTikTok,
		}}

		published, err := newPublisher(repo, registry).Execute(ctx, 0)

		require.NoError(t, err)
		assert.Equal(t, 2, published)
		assert.Len(t, repo.delivered, 2)
		assert.Empty(t, repo.failed)
		require.Len(t, writerMeta.sent, 1)
		assert.Equal(t, "Purchase", writerMeta.sent[0]["event_name"])
		require.Len(t, writerTikTok.sent, 1)
		assert.Equal(t, "CompletePayment", writerTikTok.sent[0]["event"])
	})

	t.Run("dead-letter-promotion-runs-before-fetch", func(t *testing.T) {
		repo := &fakeDeliveryRepo{moved: 2}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{}}

		_, err := newPublisher(repo, registry).Execute(ctx, 0)

		require.NoError(t, err)
		require.Equal(t, []string{"dead_letter", "fetch"}, repo.callOrder)
		assert.Equal(t, 5, repo.requestedMax)
	})

	t.Run("send-failure-increments-retry-bookkeeping", func(t *testing.T) {
		delivery := buildDelivery(t, outcomedomain.PlatformMeta)
		repo := &fakeDeliveryRepo{pending: []*domain.Delivery{delivery}}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{
			outcomedomain.PlatformMeta: &fakeWriter{platform: outcomedomain.PlatformMeta, sendErr: errors.New("http 500")},
		}}

		published, err := newPublisher(repo, registry).Execute(ctx, 0)

		require.NoError(t, err, "one bad row must not fail the batch")
		assert.Equal(t, 0, published)
		require.Len(t, repo.failed, 1)
		assert.Contains(t, repo.failMessages[0], "http 500")
	})

	t.Run("missing-writer-skips-without-retry-increment", func(t *testing.T) {
		repo := &fakeDeliveryRepo{pending: []*domain.Delivery{
			buildDelivery(t, outcomedomain.PlatformSnap),
		}}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{}}

		published, err := newPublisher(repo, registry).Execute(ctx, 0)

		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Empty(t, repo.failed, "unconfigured platform is not a data error")
		assert.Empty(t, repo.delivered)
	})

	t.Run("corrupt-payload-marks-failed", func(t *testing.T) {
		delivery := buildDelivery(t, outcomedomain.PlatformMeta)
		delivery.Payload = "{not json"
		repo := &fakeDeliveryRepo{pending: []*domain.Delivery{delivery}}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{
			outcomedomain.PlatformMeta: &fakeWriter{platform: outcomedomain.PlatformMeta},
		}}

		published, err := newPublisher(repo, registry).Execute(ctx, 0)

		require.NoError(t, err)
		assert.Equal(t, 0, published)
		require.Len(t, repo.failMessages, 1)
		assert.Contains(t, repo.failMessages[0], "invalid payload")
	})

	t.Run("explicit-batch-size-overrides-config", func(t *testing.T) {
		repo := &fakeDeliveryRepo{}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{}}

		_, err := newPublisher(repo, registry).Execute(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, 7, repo.requestedSize)
	})

	t.Run("fetch-error-propagates", func(t *testing.T) {
		repo := &fakeDeliveryRepo{fetchErr: errors.New("db down")}
		registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{}}

		_, err := newPublisher(repo, registry).Execute(ctx, 0)
		require.Error(t, err)
	})
}

func TestPublisherStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &fakeDeliveryRepo{}
	registry := &fakeRegistry{writers: map[outcomedomain.Platform]adsdomain.AdsWritePort{}}
	publisher := newPublisher(repo, registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- publisher.Start(ctx)
	}()

	// Let at least one tick fire before stopping.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after context cancellation")
	}

	assert.NotEmpty(t, repo.callOrder, "at least one publish cycle should have run")
}
