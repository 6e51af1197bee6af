package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
	"github.com/signalhouse/dispatch/internal/metrics"
)

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, errorMsg *string) error {
	args := m.Called(ctx, id, status, errorMsg)
	return args.Error(0)
}

func (m *MockNotificationRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) FindFailedForRetry(ctx context.Context, limit, maxRetries int) ([]*domain.Notification, error) {
	args := m.Called(ctx, limit, maxRetries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) FindStuckQueued(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockQueue is a mock implementation of domain.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, channel domain.Channel, job *domain.Job) error {
	args := m.Called(ctx, channel, job)
	return args.Error(0)
}

func (m *MockQueue) Dequeue(ctx context.Context, channel domain.Channel) (*domain.Job, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockQueue) Complete(ctx context.Context, channel domain.Channel, job *domain.Job) error {
	args := m.Called(ctx, channel, job)
	return args.Error(0)
}

func (m *MockQueue) Fail(ctx context.Context, channel domain.Channel, job *domain.Job, cause string) (bool, error) {
	args := m.Called(ctx, channel, job, cause)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueue) Kill(ctx context.Context, channel domain.Channel, job *domain.Job, cause string) error {
	args := m.Called(ctx, channel, job, cause)
	return args.Error(0)
}

func (m *MockQueue) PromoteDelayed(ctx context.Context, channel domain.Channel) (int64, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueue) ReclaimStalled(ctx context.Context, channel domain.Channel) (int64, []*domain.Job, error) {
	args := m.Called(ctx, channel)
	var dead []*domain.Job
	if args.Get(1) != nil {
		dead = args.Get(1).([]*domain.Job)
	}
	return args.Get(0).(int64), dead, args.Error(2)
}

func (m *MockQueue) Depth(ctx context.Context, channel domain.Channel) (domain.QueueDepth, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(domain.QueueDepth), args.Error(1)
}

func (m *MockQueue) Depths(ctx context.Context) (map[domain.Channel]domain.QueueDepth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Channel]domain.QueueDepth), args.Error(1)
}

// MockResolver is a mock implementation of domain.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Recipient(ctx context.Context, userID string, channel domain.Channel) domain.Recipient {
	args := m.Called(ctx, userID, channel)
	return args.Get(0).(domain.Recipient)
}

func (m *MockResolver) Preferences(ctx context.Context, userID string) []domain.UserPreference {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.UserPreference)
}

func (m *MockResolver) Template(ctx context.Context, typ domain.Type, channel domain.Channel) *domain.Template {
	args := m.Called(ctx, typ, channel)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Template)
}

func (m *MockResolver) UpsertPreference(ctx context.Context, userID string, channel domain.Channel, enabled bool) (*domain.UserPreference, error) {
	args := m.Called(ctx, userID, channel, enabled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserPreference), args.Error(1)
}

func (m *MockResolver) RegisterDeviceToken(ctx context.Context, userID, token, platform string) (*domain.DeviceToken, error) {
	args := m.Called(ctx, userID, token, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceToken), args.Error(1)
}

func (m *MockResolver) DeactivateDeviceToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockResolver) SyncUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockResolver) InvalidateTemplate(typ domain.Type, channel domain.Channel) {
	m.Called(typ, channel)
}

type ingestFixture struct {
	ingestor *Ingestor
	repo     *MockNotificationRepository
	queue    *MockQueue
	resolver *MockResolver
}

// newIngestFixture wires an Ingestor over a real dispatcher so the demux
// is exercised down to store and queue effects.
func newIngestFixture(subBatch int) *ingestFixture {
	repo := new(MockNotificationRepository)
	queue := new(MockQueue)
	resolver := new(MockResolver)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector(queue, logger, 10*time.Second, 100)
	d := dispatcher.New(repo, queue, resolver, logger)

	return &ingestFixture{
		ingestor: NewIngestor(d, resolver, collector, logger, subBatch),
		repo:     repo,
		queue:    queue,
		resolver: resolver,
	}
}

func TestIngestor_HandleUserEvent_Registered(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	var created *domain.Notification
	f.resolver.On("SyncUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == "u1" && u.Name == "Ada" && u.Email != nil && *u.Email == "ada@example.com"
	})).Return(nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Notification)
		}).Return(nil)
	f.queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

	payload := []byte(`{"eventType":"USER_REGISTERED","userId":"u1","userName":"Ada","email":"ada@example.com"}`)
	require.NoError(t, f.ingestor.HandleUserEvent(ctx, payload))

	require.NotNil(t, created)
	assert.Equal(t, domain.TypeWelcome, created.Type)
	assert.Equal(t, domain.ChannelEmail, created.Channel)
	assert.Equal(t, "Welcome!", created.Title)
	assert.Contains(t, created.Message, "Ada")

	f.resolver.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}

func TestIngestor_HandleUserEvent_UpdatedSyncsOnly(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	f.resolver.On("SyncUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	payload := []byte(`{"eventType":"USER_UPDATED","userId":"u1","email":"new@example.com"}`)
	require.NoError(t, f.ingestor.HandleUserEvent(ctx, payload))

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.resolver.AssertExpectations(t)
}

func TestIngestor_HandleAuthEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		payload      string
		wantType     domain.Type
		wantPriority domain.Priority
	}{
		{
			name:         "password reset is high priority",
			payload:      `{"eventType":"PASSWORD_RESET_REQUESTED","userId":"u1"}`,
			wantType:     domain.TypePasswordReset,
			wantPriority: domain.PriorityHigh,
		},
		{
			name:         "email verification",
			payload:      `{"eventType":"EMAIL_VERIFICATION_REQUESTED","userId":"u1"}`,
			wantType:     domain.TypeEmailVerification,
			wantPriority: domain.PriorityNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(100)

			var created *domain.Notification
			f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
				Run(func(args mock.Arguments) {
					created = args.Get(1).(*domain.Notification)
				}).Return(nil)
			f.queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

			require.NoError(t, f.ingestor.HandleAuthEvent(ctx, []byte(tt.payload)))

			require.NotNil(t, created)
			assert.Equal(t, tt.wantType, created.Type)
			assert.Equal(t, domain.ChannelEmail, created.Channel)
			assert.Equal(t, tt.wantPriority, created.Priority)
		})
	}
}

func TestIngestor_HandleOrderEvent_Shipped(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	var job *domain.Job
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	f.queue.On("Enqueue", mock.Anything, domain.ChannelPush, mock.AnythingOfType("*domain.Job")).
		Run(func(args mock.Arguments) {
			job = args.Get(2).(*domain.Job)
		}).Return(nil)

	payload := []byte(`{"eventType":"ORDER_SHIPPED","userId":"u2","orderId":"ord-7","trackingNumber":"TRK123"}`)
	require.NoError(t, f.ingestor.HandleOrderEvent(ctx, payload))

	require.NotNil(t, job)
	assert.Equal(t, domain.TypeOrderShipped, job.Type)
	assert.Equal(t, "ord-7", job.Metadata["orderId"])
	assert.Equal(t, "TRK123", job.Metadata["trackingNumber"])
}

func TestIngestor_HandlePaymentEvent_Failed(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	var created *domain.Notification
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Notification)
		}).Return(nil)
	f.queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

	payload := []byte(`{"eventType":"PAYMENT_FAILED","userId":"u3"}`)
	require.NoError(t, f.ingestor.HandlePaymentEvent(ctx, payload))

	require.NotNil(t, created)
	assert.Equal(t, domain.TypePaymentFailed, created.Type)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
}

func TestIngestor_MalformedEventsSkipped(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "broken json", payload: `{"eventType":`},
		{name: "missing event type", payload: `{"userId":"u1"}`},
		{name: "missing user id", payload: `{"eventType":"USER_REGISTERED"}`},
		{name: "empty payload", payload: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(100)

			require.NoError(t, f.ingestor.HandleUserEvent(ctx, []byte(tt.payload)))

			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.resolver.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestor_UnknownEventTypeIgnored(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	payload := []byte(`{"eventType":"ORDER_CANCELLED","userId":"u2"}`)
	require.NoError(t, f.ingestor.HandleOrderEvent(ctx, payload))

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestor_DispatchFailureDoesNotSurface(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Return(assert.AnError)

	payload := []byte(`{"eventType":"PAYMENT_SUCCESS","userId":"u3"}`)
	require.NoError(t, f.ingestor.HandlePaymentEvent(ctx, payload))

	f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}
