package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/hpungsan/tinycapture/internal/errors"
)

// CountOutput contains the result of the CountQueue operation.
type CountOutput struct {
	Count int `json:"count"`
}

// ListInput contains parameters for the ListQueue operation.
type ListInput struct {
	Limit  int // default: 20, max: 500
	Offset int
}

// ListedItem is a queue item with its position.
type ListedItem struct {
	Index int `json:"index"`
	capture.Item
}

// ListOutput contains the result of the ListQueue operation.
type ListOutput struct {
	Items      []ListedItem `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// ClearOutput contains the result of the ClearQueue operation.
type ClearOutput struct {
	Cleared int    `json:"cleared"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// LoadQueue returns the stored queue, or an empty queue if nothing is stored.
func LoadQueue(ctx context.Context, env *Env) ([]capture.Item, error) {
	return loadQueue(ctx, env.DB)
}

// SaveQueue replaces the stored queue with items.
func SaveQueue(ctx context.Context, env *Env, items []capture.Item) error {
	return env.withLock(ctx, func() error {
		return db.Update(ctx, env.DB, func(tx *sql.Tx) error {
			return saveQueue(ctx, env, tx, items)
		})
	})
}

// ClearQueue empties the queue.
func ClearQueue(ctx context.Context, env *Env) (*ClearOutput, error) {
	var cleared int
	err := env.withLock(ctx, func() error {
		return db.Update(ctx, env.DB, func(tx *sql.Tx) error {
			items, err := loadQueue(ctx, tx)
			if err != nil {
				return err
			}
			cleared = len(items)
			return saveQueue(ctx, env, tx, []capture.Item{})
		})
	})
	if err != nil {
		return nil, err
	}

	env.logger().Info("queue cleared", "cleared", cleared)
	return &ClearOutput{Cleared: cleared, Count: 0, Message: "Cleared ✓"}, nil
}

// CountQueue returns the number of queued items.
func CountQueue(ctx context.Context, env *Env) (*CountOutput, error) {
	items, err := LoadQueue(ctx, env)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Count: len(items)}, nil
}

// ListQueue returns a page of the queue in capture order.
func ListQueue(ctx context.Context, env *Env, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	items, err := LoadQueue(ctx, env)
	if err != nil {
		return nil, err
	}

	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)

	page := make([]ListedItem, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, ListedItem{Index: i, Item: items[i]})
	}

	return &ListOutput{
		Items: page,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}

// appendItems adds items to the end of the queue in one locked transaction
// and returns the new length.
func appendItems(ctx context.Context, env *Env, items ...capture.Item) (int, error) {
	var count int
	err := env.withLock(ctx, func() error {
		return db.Update(ctx, env.DB, func(tx *sql.Tx) error {
			queue, err := loadQueue(ctx, tx)
			if err != nil {
				return err
			}
			queue = append(queue, items...)
			count = len(queue)
			return saveQueue(ctx, env, tx, queue)
		})
	})
	return count, err
}

func loadQueue(ctx context.Context, q db.Querier) ([]capture.Item, error) {
	values, err := db.Get(ctx, q, KeyQueue)
	if err != nil {
		return nil, err
	}

	raw, ok := values[KeyQueue]
	if !ok || string(raw) == "null" {
		return []capture.Item{}, nil
	}

	var items []capture.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		// Refuse to continue: a later save would overwrite whatever is stored.
		return nil, errors.NewInternal(fmt.Errorf("stored queue is malformed: %w", err))
	}
	if items == nil {
		items = []capture.Item{}
	}
	return items, nil
}

func saveQueue(ctx context.Context, env *Env, q db.Querier, items []capture.Item) error {
	if items == nil {
		items = []capture.Item{}
	}
	return db.Set(ctx, q, KeyQueue, items, env.now())
}
