/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	DefaultMinPlayers    = 4
	DefaultMaxNameLength = 32
)

// Conn is the live, full-duplex channel a participant is connected through.
// Send must not block; a failed send is reported and otherwise ignored.
// Close ends the connection after anything already queued has gone out.
type Conn interface {
	ID() ConnID
	Send(msg any) error
	Close()
}

// Limits holds the per-room tunables.
type Limits struct {
	MinPlayers    int
	MaxNameLength int
	TokenBytes    int
}

func (l Limits) withDefaults() Limits {
	if l.MinPlayers <= 0 {
		l.MinPlayers = DefaultMinPlayers
	}
	if l.MaxNameLength <= 0 {
		l.MaxNameLength = DefaultMaxNameLength
	}
	if l.TokenBytes <= 0 {
		l.TokenBytes = DefaultTokenBytes
	}
	return l
}

// Participant is a copy of one member's state, safe to read without the room lock.
type Participant struct {
	Token Token
	Conn  Conn
	Name  string
	Ready bool
}

type participant struct {
	conn  Conn
	name  string
	ready bool
}

// Room holds the participants of one room id. All methods are safe for
// concurrent use.
type Room struct {
	id     string
	limits Limits

	mu           sync.RWMutex
	participants map[Token]*participant
	order        []Token
}

func newRoom(id string, limits Limits) *Room {
	return &Room{
		id:           id,
		limits:       limits.withDefaults(),
		participants: make(map[Token]*participant),
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) MinPlayers() int { return r.limits.MinPlayers }

// Join adds conn as an anonymous participant and returns its token. Joining
// twice over the same connection returns the existing token.
func (r *Room) Join(conn Conn) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.tokenOfLocked(conn.ID()); ok {
		return token
	}

	token := NewToken(r.limits.TokenBytes)
	r.participants[token] = &participant{conn: conn}
	r.order = append(r.order, token)

	return token
}

// Rebind points an existing participant at a new connection and returns the
// connection it replaced, or nil when it was already bound to conn.
func (r *Room) Rebind(token Token, conn Conn) (prev Conn, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[token]
	if !ok {
		return nil, false
	}

	if other, ok := r.tokenOfLocked(conn.ID()); ok && other != token {
		r.removeLocked(other)
	}

	if p.conn.ID() != conn.ID() {
		prev = p.conn
	}
	p.conn = conn

	return prev, true
}

func (r *Room) Leave(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(token)
}

// LeaveConn removes whichever participant is bound to id.
func (r *Room) LeaveConn(id ConnID) (Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokenOfLocked(id)
	if !ok {
		return "", false
	}

	return token, r.removeLocked(token)
}

func (r *Room) removeLocked(token Token) bool {
	if _, ok := r.participants[token]; !ok {
		return false
	}

	delete(r.participants, token)

	dst := r.order[:0]
	for _, t := range r.order {
		if t != token {
			dst = append(dst, t)
		}
	}
	r.order = dst

	return true
}

func (r *Room) tokenOfLocked(id ConnID) (Token, bool) {
	for _, token := range r.order {
		if r.participants[token].conn.ID() == id {
			return token, true
		}
	}
	return "", false
}

func (r *Room) TokenOf(id ConnID) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tokenOfLocked(id)
}

// nameFits reports whether name, trimmed, is non-blank and shorter than max
// runes.
func nameFits(name string, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n > 0 && n < max
}

func (r *Room) validName(name string) bool {
	return nameFits(name, r.limits.MaxNameLength)
}

func (r *Room) takenLocked(token Token, name string) bool {
	for other, q := range r.participants {
		if other != token && q.name == name {
			return true
		}
	}
	return false
}

// NameAvailable reports whether token could claim name right now. token may
// be empty or unknown, in which case every held name counts as taken.
func (r *Room) NameAvailable(token Token, name string) bool {
	if !r.validName(name) {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return !r.takenLocked(token, name)
}

// SetName claims name for token and marks the participant ready. It fails
// when the name is blank, too long, or held by another participant.
func (r *Room) SetName(token Token, name string) bool {
	if !r.validName(name) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[token]
	if !ok {
		return false
	}

	if r.takenLocked(token, name) {
		return false
	}

	p.name = name
	p.ready = true

	return true
}

// ClearName drops the participant's name, which also drops readiness.
func (r *Room) ClearName(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[token]
	if !ok {
		return false
	}

	p.name = ""
	p.ready = false

	return true
}

// SetReady toggles readiness without touching the name. An unnamed
// participant can never be ready.
func (r *Room) SetReady(token Token, ready bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[token]
	if !ok || (ready && p.name == "") {
		return false
	}

	p.ready = ready

	return true
}

// Names lists every participant's name in join order; unnamed participants
// appear as "".
func (r *Room) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, token := range r.order {
		names = append(names, r.participants[token].name)
	}
	return names
}

func (r *Room) ReadyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, token := range r.order {
		if p := r.participants[token]; p.ready {
			names = append(names, p.name)
		}
	}
	return names
}

func (r *Room) readyCountLocked() int {
	count := 0
	for _, p := range r.participants {
		if p.ready {
			count++
		}
	}
	return count
}

func (r *Room) ReadyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readyCountLocked()
}

// CanStart reports whether token may start the game: it must itself be
// ready, and the room must have reached its quorum.
func (r *Room) CanStart(token Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[token]
	if !ok || !p.ready {
		return false
	}

	return r.readyCountLocked() >= r.limits.MinPlayers
}

func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.participants)
}

func (r *Room) Participant(token Token) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participants[token]
	if !ok {
		return Participant{}, false
	}

	return Participant{Token: token, Conn: p.conn, Name: p.name, Ready: p.ready}, true
}

// Snapshot copies the membership in join order.
func (r *Room) Snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.order))
	for _, token := range r.order {
		p := r.participants[token]
		out = append(out, Participant{Token: token, Conn: p.conn, Name: p.name, Ready: p.ready})
	}
	return out
}

func (r *Room) readySnapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, 0, len(r.order))
	for _, token := range r.order {
		if p := r.participants[token]; p.ready {
			out = append(out, Participant{Token: token, Conn: p.conn, Name: p.name, Ready: p.ready})
		}
	}
	return out
}
