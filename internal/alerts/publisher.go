// Package alerts announces basic items that fell below their minimum stock.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hotel-pms/hotel-pms/internal/inventory"
)

// LowStock is the message published on the alert channel.
type LowStock struct {
	BasicID      int64     `json:"basic_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Stock        int       `json:"stock"`
	MinimumStock int       `json:"minimum_stock"`
	DetectedAt   time.Time `json:"detected_at"`
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Below     int
	Published int
	Cleared   int
}

// Publisher fans low-stock alerts out over redis pub/sub. A set of alerted
// item ids makes an item alert once per dip below its minimum.
type Publisher struct {
	client  *redis.Client
	channel string
	active  string
	now     func() time.Time
}

// NewPublisher builds a Publisher for channel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		active:  channel + ":active",
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Channel is the pub/sub channel alerts go to.
func (p *Publisher) Channel() string { return p.channel }

// PublishLowStock publishes an alert for item unless one is outstanding. It
// reports whether a message went out.
func (p *Publisher) PublishLowStock(ctx context.Context, item inventory.BasicInventory) (bool, error) {
	member := strconv.FormatInt(item.ID, 10)
	added, err := p.client.SAdd(ctx, p.active, member).Result()
	if err != nil {
		return false, fmt.Errorf("alerts: mark %d: %w", item.ID, err)
	}
	if added == 0 {
		return false, nil
	}
	body, err := json.Marshal(LowStock{
		BasicID:      item.ID,
		Name:         item.Name,
		Category:     string(item.Category),
		Stock:        item.Stock,
		MinimumStock: item.MinimumStock,
		DetectedAt:   p.now(),
	})
	if err != nil {
		return false, err
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		// Unmark so the next sweep tries again.
		_ = p.client.SRem(ctx, p.active, member).Err()
		return false, fmt.Errorf("alerts: publish %d: %w", item.ID, err)
	}
	return true, nil
}

// Sweep publishes alerts for every item yielded by below and clears the mark
// of items that are no longer below their minimum. Marks are left alone when
// the scan fails part way.
func (p *Publisher) Sweep(ctx context.Context, below iter.Seq2[inventory.BasicInventory, error]) (SweepResult, error) {
	var res SweepResult
	keep := make(map[string]struct{})
	for item, err := range below {
		if err != nil {
			return res, err
		}
		res.Below++
		keep[strconv.FormatInt(item.ID, 10)] = struct{}{}
		sent, err := p.PublishLowStock(ctx, item)
		if err != nil {
			return res, err
		}
		if sent {
			res.Published++
		}
	}
	cleared, err := p.clearExcept(ctx, keep)
	res.Cleared = cleared
	return res, err
}

// Active lists the ids that currently have an outstanding alert.
func (p *Publisher) Active(ctx context.Context) ([]int64, error) {
	members, err := p.client.SMembers(ctx, p.active).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *Publisher) clearExcept(ctx context.Context, keep map[string]struct{}) (int, error) {
	members, err := p.client.SMembers(ctx, p.active).Result()
	if err != nil {
		return 0, fmt.Errorf("alerts: list active: %w", err)
	}
	var stale []any
	for _, m := range members {
		if _, ok := keep[m]; !ok {
			stale = append(stale, m)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := p.client.SRem(ctx, p.active, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("alerts: clear: %w", err)
	}
	return int(n), nil
}
