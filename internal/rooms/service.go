package rooms

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// RepositoryPort abstracts the catalogue storage.
type RepositoryPort interface {
	GetRoom(ctx context.Context, number string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// Service answers catalogue queries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Room returns a room by number.
func (s *Service) Room(ctx context.Context, number string) (Room, error) {
	room, err := s.repo.GetRoom(ctx, number)
	if errors.Is(err, ErrRoomNotFound) {
		return Room{}, shared.NotFound("room", number)
	}
	return room, err
}

// MaxGuests returns the capacity of the room's category.
func (s *Service) MaxGuests(ctx context.Context, number string) (int, error) {
	room, err := s.Room(ctx, number)
	if err != nil {
		return 0, err
	}
	if !room.Active {
		return 0, shared.Validation("room", number, "room is out of service")
	}
	return room.MaxGuests, nil
}

// Rooms lists the catalogue.
func (s *Service) Rooms(ctx context.Context) ([]Room, error) {
	return s.repo.ListRooms(ctx)
}

// Categories lists room categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CapacitySource answers capacity lookups.
type CapacitySource interface {
	MaxGuests(ctx context.Context, number string) (int, error)
}

// CachedProvider memoises capacity lookups in redis and collapses concurrent
// misses for the same room into one source call.
type CachedProvider struct {
	source CapacitySource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedProvider wraps source. A nil client disables caching.
func NewCachedProvider(source CapacitySource, client *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedProvider{source: source, client: client, ttl: ttl}
}

// MaxGuests returns the cached capacity or loads it from the source.
func (p *CachedProvider) MaxGuests(ctx context.Context, number string) (int, error) {
	if p.client == nil {
		return p.source.MaxGuests(ctx, number)
	}
	key := capacityKey(number)
	if raw, err := p.client.Get(ctx, key).Result(); err == nil {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			return n, nil
		}
	}
	// The flight outlives the caller that started it, so it must not carry that caller's cancellation.
	fctx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		n, err := p.source.MaxGuests(fctx, number)
		if err != nil {
			return 0, err
		}
		_ = p.client.Set(fctx, key, strconv.Itoa(n), p.ttl).Err()
		return n, nil
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}

// Invalidate drops the cached capacity of a room.
func (p *CachedProvider) Invalidate(ctx context.Context, number string) error {
	if p.client == nil {
		return nil
	}
	return p.client.Del(ctx, capacityKey(number)).Err()
}

func capacityKey(number string) string {
	return fmt.Sprintf("rooms:capacity:%s", number)
}
