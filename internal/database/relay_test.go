package database

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockOutboxRepository is a mock for OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

// xaddValues unwraps the loosely-typed XAddArgs.Values for assertions.
func xaddValues(args *redis.XAddArgs) map[string]interface{} {
	vals, _ := args.Values.(map[string]interface{})
	return vals
}

func discoveredEvent(key string) *OutboxEvent {
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "product",
		AggregateID:   key,
		EventType:     EventProductDiscovered,
		Payload:       json.RawMessage(`{"key":"` + key + `","title":"Test Product"}`),
		TargetStream:  defaultTargetStream,
	}
}

func TestRelay_ProcessEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("successfully process and publish events", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)

		relay := &Relay{
			redis:     mockRedis,
			outbox:    mockOutbox,
			logger:    logger,
			batchSize: 10,
		}

		events := []*OutboxEvent{
			discoveredEvent("https://example.com/p/1"),
			discoveredEvent("kurta-101"),
		}

		mockOutbox.On("GetPending", ctx, 10).Return(events, nil)

		for _, event := range events {
			event := event
			mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
				vals := xaddValues(args)
				return args.Stream == event.TargetStream &&
					vals["event_type"] == event.EventType &&
					vals["natural_key"] == event.AggregateID
			})).Return(nil)

			mockOutbox.On("MarkProcessed", ctx, event.ID).Return(nil)
		}

		err := relay.processEvents(ctx)
		require.NoError(t, err)

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("handle redis publish failure", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)

		relay := &Relay{
			redis:     mockRedis,
			outbox:    mockOutbox,
			logger:    logger,
			batchSize: 10,
		}

		event := discoveredEvent("kurta-101")

		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{event}, nil)

		redisErr := errors.New("redis connection failed")
		mockRedis.On("XAdd", ctx, mock.Anything).Return(redisErr)

		mockOutbox.On("MarkFailed", ctx, event.ID, mock.MatchedBy(func(err error) bool {
			return err.Error() == "failed to publish to redis: redis connection failed"
		})).Return(nil)

		err := relay.processEvents(ctx)
		assert.NoError(t, err) // individual event errors never fail the batch

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("handle empty event batch", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)

		relay := &Relay{
			redis:     mockRedis,
			outbox:    mockOutbox,
			logger:    logger,
			batchSize: 10,
		}

		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{}, nil)

		err := relay.processEvents(ctx)
		require.NoError(t, err)

		mockRedis.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("continue processing on individual event failure", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)

		relay := &Relay{
			redis:     mockRedis,
			outbox:    mockOutbox,
			logger:    logger,
			batchSize: 10,
		}

		events := []*OutboxEvent{
			discoveredEvent("kurta-101"),
			discoveredEvent("kurta-102"),
		}

		mockOutbox.On("GetPending", ctx, 10).Return(events, nil)

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return xaddValues(args)["natural_key"] == "kurta-101"
		})).Return(errors.New("redis error"))
		mockOutbox.On("MarkFailed", ctx, events[0].ID, mock.Anything).Return(nil)

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return xaddValues(args)["natural_key"] == "kurta-102"
		})).Return(nil)
		mockOutbox.On("MarkProcessed", ctx, events[1].ID).Return(nil)

		err := relay.processEvents(ctx)
		require.NoError(t, err)

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})
}

func TestRelay_PublishToRedis(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("correct stream data format", func(t *testing.T) {
		mockRedis := new(MockRedisClient)

		relay := &Relay{
			redis:  mockRedis,
			logger: logger,
		}

		event := discoveredEvent("kurta-101")
		event.CreatedAt = time.Now()

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			val, ok := xaddValues(args)["data"].(string)
			if !ok {
				return false
			}

			var data map[string]interface{}
			if err := json.Unmarshal([]byte(val), &data); err != nil {
				return false
			}

			return data["id"] != nil &&
				data["type"] == EventProductDiscovered &&
				data["natural_key"] == "kurta-101" &&
				data["product"] != nil &&
				data["timestamp"] != nil
		})).Return(nil)

		err := relay.publishToRedis(ctx, event)
		require.NoError(t, err)

		mockRedis.AssertExpectations(t)
	})

	t.Run("include metadata in stream data", func(t *testing.T) {
		mockRedis := new(MockRedisClient)

		relay := &Relay{
			redis:  mockRedis,
			logger: logger,
		}

		event := discoveredEvent("kurta-101")
		event.CreatedAt = time.Now()

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			val, ok := xaddValues(args)["data"].(string)
			if !ok {
				return false
			}

			var data map[string]interface{}
			if err := json.Unmarshal([]byte(val), &data); err != nil {
				return false
			}

			metadata, ok := data["metadata"].(map[string]interface{})
			if !ok {
				return false
			}

			return metadata["source"] == "catalog-crawler" &&
				metadata["schema"] == "catalog.product.v1"
		})).Return(nil)

		err := relay.publishToRedis(ctx, event)
		require.NoError(t, err)

		mockRedis.AssertExpectations(t)
	})
}

func TestRelay_Start(t *testing.T) {
	logger := slog.Default()

	t.Run("stop on context cancellation", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)

		relay := &Relay{
			redis:     mockRedis,
			outbox:    mockOutbox,
			logger:    logger,
			interval:  50 * time.Millisecond,
			batchSize: 10,
		}

		mockOutbox.On("GetPending", mock.Anything, 10).Return([]*OutboxEvent{}, nil).Maybe()

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error)
		go func() {
			done <- relay.Start(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(1 * time.Second):
			t.Fatal("relay did not stop on context cancellation")
		}
	})
}
