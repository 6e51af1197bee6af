package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
)

func bulkPayload(t *testing.T, batchID string, items []dispatcher.SendRequest) []byte {
	t.Helper()
	payload, err := json.Marshal(BulkMessage{
		BatchID:            batchID,
		TotalNotifications: len(items),
		ChunkIndex:         0,
		TotalChunks:        1,
		BulkNotifications:  items,
	})
	require.NoError(t, err)
	return payload
}

func pinned(c domain.Channel) *domain.Channel { return &c }

func TestIngestor_HandleBulk_DispatchesAllItems(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(100)

	items := make([]dispatcher.SendRequest, 250)
	for i := range items {
		items[i] = dispatcher.SendRequest{
			UserID:  fmt.Sprintf("u%d", i),
			Type:    domain.TypeOrderConfirmation,
			Title:   "Order Confirmed",
			Message: "Thanks for your order",
			Channel: pinned(domain.ChannelEmail),
		}
	}

	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	f.queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

	require.NoError(t, f.ingestor.HandleBulk(ctx, bulkPayload(t, "batch-1", items)))

	f.repo.AssertNumberOfCalls(t, "Create", 250)
	f.queue.AssertNumberOfCalls(t, "Enqueue", 250)
}

func TestIngestor_HandleBulk_ItemFailureIsolated(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(2)

	items := []dispatcher.SendRequest{
		{UserID: "u1", Type: domain.TypeWelcome, Title: "t", Message: "m", Channel: pinned(domain.ChannelEmail)},
		{UserID: "", Type: domain.TypeWelcome, Title: "t", Message: "m"}, // invalid, skipped
		{UserID: "u3", Type: domain.TypeWelcome, Title: "t", Message: "m", Channel: pinned(domain.ChannelEmail)},
		{UserID: "u4", Type: domain.TypeWelcome, Title: "t", Message: "m", Channel: pinned(domain.ChannelEmail)},
		{UserID: "u5", Type: domain.TypeWelcome, Title: "t", Message: "m", Channel: pinned(domain.ChannelEmail)},
	}

	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	f.queue.On("Enqueue", mock.Anything, domain.ChannelEmail, mock.AnythingOfType("*domain.Job")).Return(nil)

	require.NoError(t, f.ingestor.HandleBulk(ctx, bulkPayload(t, "batch-2", items)))

	f.repo.AssertNumberOfCalls(t, "Create", 4)
}

func TestIngestor_HandleBulk_EmptyAndMalformed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "no items", payload: []byte(`{"batchId":"b1","bulkNotifications":[]}`)},
		{name: "broken json", payload: []byte(`{"batchId":`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(100)

			require.NoError(t, f.ingestor.HandleBulk(ctx, tt.payload))

			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestPublishKey(t *testing.T) {
	withUser := BulkMessage{BulkNotifications: []dispatcher.SendRequest{{UserID: "u9"}}}

	assert.Equal(t, "batch-1", publishKey(BulkMessage{BatchID: "batch-1"}))
	assert.Equal(t, "u9", publishKey(withUser))
	assert.Equal(t, "bulk", publishKey(BulkMessage{}))
}
