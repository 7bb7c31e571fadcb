/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"errors"
	"time"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNoToken      = errors.New("player token not found")
	ErrNotInGame    = errors.New("player not part of room")
)

// Game is the frozen roster handed off when a room starts. It never changes
// after creation.
type Game struct {
	RoomID    string
	CreatedAt time.Time

	players map[Token]string
	order   []Token
}

func newGame(roomID string, players []Participant, now time.Time) *Game {
	g := &Game{
		RoomID:    roomID,
		CreatedAt: now,
		players:   make(map[Token]string, len(players)),
		order:     make([]Token, 0, len(players)),
	}

	for _, p := range players {
		if _, dup := g.players[p.Token]; dup {
			continue
		}
		name := p.Name
		if name == "" {
			name = "(no name)"
		}
		g.players[p.Token] = name
		g.order = append(g.order, p.Token)
	}

	return g
}

func (g *Game) Name(token Token) (string, bool) {
	name, ok := g.players[token]
	return name, ok
}

// Names returns the roster in the order players joined the room.
func (g *Game) Names() []string {
	names := make([]string, 0, len(g.order))
	for _, token := range g.order {
		names = append(names, g.players[token])
	}
	return names
}

func (g *Game) Len() int { return len(g.players) }
