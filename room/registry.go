/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns every live room and every started game in the process.
// Lock order is registry, then room.
type Registry struct {
	limits Limits
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	rooms map[string]*Room
	games map[string]*Game
}

func NewRegistry(limits Limits, log zerolog.Logger) *Registry {
	return &Registry{
		limits: limits.withDefaults(),
		log:    log.With().Str("module", "room.registry").Logger(),
		now:    time.Now,
		rooms:  make(map[string]*Room),
		games:  make(map[string]*Game),
	}
}

func (reg *Registry) Limits() Limits { return reg.limits }

func (reg *Registry) getOrCreateLocked(id string) *Room {
	if r, ok := reg.rooms[id]; ok {
		return r
	}

	r := newRoom(id, reg.limits)
	reg.rooms[id] = r
	reg.log.Debug().Str("room", id).Msg("created room")

	return r
}

func (reg *Registry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.getOrCreateLocked(id)
}

func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	return r, ok
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}

// NewRoomID returns a random 8-character id not used by any live room or game.
func (reg *Registry) NewRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for i := range buf {
			buf[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(buf)

		reg.mu.Lock()
		_, live := reg.rooms[id]
		_, started := reg.games[id]
		reg.mu.Unlock()

		if !live && !started {
			return id
		}
	}
}

// Join adds conn to room id, creating the room if needed. The room cannot be
// removed between lookup and join.
func (reg *Registry) Join(id string, conn Conn) (*Room, Token) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r := reg.getOrCreateLocked(id)
	return r, r.Join(conn)
}

// Attachment is the outcome of Registry.Attach.
type Attachment struct {
	Room  *Room
	Token Token

	// Minted is true when conn joined as a new participant.
	Minted bool

	// Superseded is the connection the participant used before, if any.
	// The caller owns closing it.
	Superseded Conn
}

// Attach binds conn to the participant holding presented, when that
// participant is still in the room. Otherwise it joins conn afresh.
func (reg *Registry) Attach(id string, conn Conn, presented Token) Attachment {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r := reg.getOrCreateLocked(id)
	if presented != "" {
		if prev, ok := r.Rebind(presented, conn); ok {
			reg.log.Debug().Str("room", id).Str("conn", string(conn.ID())).Msg("rebound participant")
			return Attachment{Room: r, Token: presented, Superseded: prev}
		}
	}

	return Attachment{Room: r, Token: r.Join(conn), Minted: true}
}

func (reg *Registry) removeIfEmptyLocked(id string) bool {
	r, ok := reg.rooms[id]
	if !ok || r.Len() > 0 {
		return false
	}

	delete(reg.rooms, id)
	reg.log.Debug().Str("room", id).Msg("removed empty room")

	return true
}

// RemoveIfEmpty deletes room id when it has no participants left.
func (reg *Registry) RemoveIfEmpty(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.removeIfEmptyLocked(id)
}

// Leave removes token from room id and drops the room if that emptied it.
func (reg *Registry) Leave(id string, token Token) (left, removed bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return false, false
	}

	left = r.Leave(token)
	return left, reg.removeIfEmptyLocked(id)
}

// LeaveConn is Leave keyed by connection rather than token.
func (reg *Registry) LeaveConn(id string, conn ConnID) (token Token, left, removed bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return "", false, false
	}

	token, left = r.LeaveConn(conn)
	return token, left, reg.removeIfEmptyLocked(id)
}

// NameAvailable reports whether token could claim name in room id without
// claiming it. A room that does not exist yet only checks the name's shape.
func (reg *Registry) NameAvailable(id string, token Token, name string) bool {
	r, ok := reg.Get(id)
	if !ok {
		return nameFits(name, reg.limits.MaxNameLength)
	}
	return r.NameAvailable(token, name)
}

// CreateGameOnce stores a game for room id unless one already exists. Exactly
// one caller per id ever sees true.
func (reg *Registry) CreateGameOnce(id string, players []Participant) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.games[id]; exists {
		return false
	}

	reg.games[id] = newGame(id, players, reg.now())
	reg.log.Info().Str("room", id).Int("players", len(players)).Msg("game created")

	return true
}

func (reg *Registry) Game(id string) (*Game, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	g, ok := reg.games[id]
	return g, ok
}

// StartGame freezes the ready participants of room id into its game. The
// caller that created the game gets the roster back; everyone else gets nil.
func (reg *Registry) StartGame(id string) []Participant {
	r, ok := reg.Get(id)
	if !ok {
		return nil
	}

	ready := r.readySnapshot()
	if !reg.CreateGameOnce(id, ready) {
		return nil
	}

	return ready
}

// Member resolves token against the game started for room id.
func (reg *Registry) Member(id string, token Token) (name string, roster []string, err error) {
	g, ok := reg.Game(id)
	if !ok {
		return "", nil, fmt.Errorf("game %q: %w", id, ErrRoomNotFound)
	}
	if token == "" {
		return "", nil, ErrNoToken
	}

	name, ok = g.Name(token)
	if !ok {
		return "", nil, fmt.Errorf("game %q: %w", id, ErrNotInGame)
	}

	return name, g.Names(), nil
}

// ReapGames evicts games created more than ttl ago.
func (reg *Registry) ReapGames(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	cutoff := reg.now().Add(-ttl)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reaped := 0
	for id, g := range reg.games {
		if g.CreatedAt.Before(cutoff) {
			delete(reg.games, id)
			reaped++
			reg.log.Debug().Str("room", id).Msg("reaped game")
		}
	}

	return reaped
}

// Run periodically reaps games until ctx is done.
func (reg *Registry) Run(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.ReapGames(ttl)
		}
	}
}
