package memstore

import (
	"context"
	"sort"

	"github.com/hotel-pms/hotel-pms/internal/rooms"
)

// RoomRepo implements rooms.RepositoryPort.
type RoomRepo struct{ s *Store }

// Rooms returns the catalogue view of the store.
func (s *Store) Rooms() *RoomRepo { return &RoomRepo{s: s} }

func (r *RoomRepo) GetRoom(_ context.Context, number string) (rooms.Room, error) {
	var (
		room rooms.Room
		ok   bool
	)
	r.s.locked(func(st *state) { room, ok = st.rooms[number] })
	if !ok {
		return rooms.Room{}, rooms.ErrRoomNotFound
	}
	return room, nil
}

func (r *RoomRepo) ListRooms(_ context.Context) ([]rooms.Room, error) {
	var out []rooms.Room
	r.s.locked(func(st *state) {
		for _, room := range st.rooms {
			out = append(out, room)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *RoomRepo) ListCategories(_ context.Context) ([]rooms.Category, error) {
	var out []rooms.Category
	r.s.locked(func(st *state) {
		for _, c := range st.categories {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
