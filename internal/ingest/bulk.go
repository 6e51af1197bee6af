package ingest

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
)

// BulkMessage is one chunk of a bulk batch on the bulk topic. The
// envelope keys follow the producer contract; the items are ordinary
// send requests.
type BulkMessage struct {
	BatchID            string                   `json:"batchId"`
	TotalNotifications int                      `json:"totalNotifications"`
	ChunkIndex         int                      `json:"chunkIndex"`
	TotalChunks        int                      `json:"totalChunks"`
	BulkNotifications  []dispatcher.SendRequest `json:"bulkNotifications"`
}

// HandleBulk dispatches every item of a bulk chunk. Items are split
// into sub-batches that run in parallel; one failing item never aborts
// the rest of the chunk.
func (i *Ingestor) HandleBulk(ctx context.Context, value []byte) error {
	var msg BulkMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		i.dropMalformed(TopicBulk, err)
		return nil
	}
	if len(msg.BulkNotifications) == 0 {
		i.dropMalformed(TopicBulk, domain.ErrBatchEmpty)
		return nil
	}

	start := time.Now()
	items := msg.BulkNotifications

	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	for begin := 0; begin < len(items); begin += i.subBatch {
		end := begin + i.subBatch
		if end > len(items) {
			end = len(items)
		}
		batch := items[begin:end]

		g.Go(func() error {
			for idx := range batch {
				if _, err := i.dispatcher.Dispatch(gctx, batch[idx]); err != nil {
					i.collector.RecordEventDropped(TopicBulk, domain.CodeOf(err))
					i.logger.Error("failed to dispatch bulk item",
						"batch_id", msg.BatchID,
						"user_id", batch[idx].UserID,
						"error", err,
					)
					continue
				}
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	throughput := float64(len(items)) / elapsed.Seconds()

	i.logger.Info("bulk chunk processed",
		"batch_id", msg.BatchID,
		"chunk_index", msg.ChunkIndex,
		"total_chunks", msg.TotalChunks,
		"items", len(items),
		"succeeded", succeeded.Load(),
		"elapsed", elapsed,
		"throughput_per_second", throughput,
	)
	return nil
}
