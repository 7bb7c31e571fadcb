/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"sync"

	"github.com/rs/zerolog"
)

type SessionOptions struct {
	Renderer Renderer

	// GameURL returns where players of a started game are sent.
	GameURL func(roomID string) string

	// EncodeToken turns a token into what the client stores. Nil sends the
	// raw token.
	EncodeToken func(Token) (string, error)

	Log zerolog.Logger
}

// Session ties one connection to its participant in one room.
type Session struct {
	reg    *Registry
	roomID string
	conn   Conn
	opts   SessionOptions
	log    zerolog.Logger

	once sync.Once
}

func NewSession(reg *Registry, roomID string, conn Conn, opts SessionOptions) *Session {
	return &Session{
		reg:    reg,
		roomID: roomID,
		conn:   conn,
		opts:   opts,
		log: opts.Log.With().
			Str("module", "room.session").
			Str("room", roomID).
			Str("conn", string(conn.ID())).
			Logger(),
	}
}

func (s *Session) RoomID() string { return s.roomID }

// Open joins the room, reusing presented when it still names a participant
// of this room. minted is true when a new token was issued.
func (s *Session) Open(presented Token) (token Token, minted bool) {
	att := s.reg.Attach(s.roomID, s.conn, presented)

	if att.Minted {
		s.log.Info().Msg("participant joined")
	} else {
		s.log.Info().Msg("participant reconnected")
	}

	// The older connection no longer receives anything for this participant.
	if att.Superseded != nil {
		if err := att.Superseded.Send(Superseded{Type: "superseded"}); err != nil {
			s.log.Debug().Err(err).Str("to", string(att.Superseded.ID())).Msg("superseded notice not delivered")
		}
		att.Superseded.Close()
	}

	return att.Token, att.Minted
}

// Greet sends the current ready list and the matching controls to this
// connection only.
func (s *Session) Greet() {
	r, token := s.resolve()

	p, _ := r.Participant(token)
	s.sendView(View{
		Kind:         ViewPlayerList,
		RoomID:       s.roomID,
		ReadyPlayers: r.ReadyNames(),
		PlayerName:   p.Name,
		MinPlayers:   r.MinPlayers(),
	})

	if p.Name != "" {
		s.sendView(View{Kind: ViewJoined, RoomID: s.roomID, PlayerName: p.Name})
	} else {
		s.sendView(View{Kind: ViewForm, RoomID: s.roomID})
	}
}

// resolve finds this connection's participant, joining on demand if the
// connection is not in the room.
func (s *Session) resolve() (*Room, Token) {
	if r, ok := s.reg.Get(s.roomID); ok {
		if token, ok := r.TokenOf(s.conn.ID()); ok {
			return r, token
		}
	}

	r, token := s.reg.Join(s.roomID, s.conn)
	s.log.Debug().Msg("joined on demand")

	encoded := string(token)
	if s.opts.EncodeToken != nil {
		var err error
		if encoded, err = s.opts.EncodeToken(token); err != nil {
			s.log.Error().Err(err).Msg("encode token")
			return r, token
		}
	}

	s.send(TokenUpdate{Type: "update-player-token", PlayerToken: encoded})

	return r, token
}

// Handle applies one client action. Unknown actions are ignored.
func (s *Session) Handle(a Action) {
	switch a.Action {
	case ActionJoin:
		name := ""
		if a.PlayerName != nil {
			name = *a.PlayerName
		}
		s.join(name)
	case ActionLeave:
		s.leave()
	case ActionStartGame:
		s.startGame()
	default:
		s.log.Debug().Str("action", a.Action).Msg("ignored unknown action")
	}
}

func (s *Session) join(name string) {
	r, token := s.resolve()

	if !r.SetName(token, name) {
		s.log.Debug().Str("name", name).Msg("name rejected")
		s.sendView(View{Kind: ViewForm, RoomID: s.roomID, NameTaken: true})
		return
	}

	s.log.Info().Str("name", name).Msg("participant ready")

	s.broadcastPlayers(r)
	s.sendView(View{Kind: ViewJoined, RoomID: s.roomID, PlayerName: name})
}

func (s *Session) leave() {
	r, token := s.resolve()

	r.ClearName(token)
	s.log.Info().Msg("participant not ready")

	s.broadcastPlayers(r)
	s.sendView(View{Kind: ViewForm, RoomID: s.roomID})
}

func (s *Session) startGame() {
	r, token := s.resolve()

	if !r.CanStart(token) {
		s.log.Debug().Int("ready", r.ReadyCount()).Msg("start refused")
		return
	}

	players := s.reg.StartGame(s.roomID)
	if len(players) == 0 {
		return
	}

	msg := GameStarted{Type: "game-started", URL: s.gameURL()}
	for _, p := range players {
		if err := p.Conn.Send(msg); err != nil {
			s.log.Debug().Err(err).Str("to", string(p.Conn.ID())).Msg("game-started not delivered")
		}
	}

	s.log.Info().Int("players", len(players)).Msg("game started")
}

func (s *Session) gameURL() string {
	if s.opts.GameURL == nil {
		return "/game/" + s.roomID
	}
	return s.opts.GameURL(s.roomID)
}

// Close removes the participant and tells the rest of the room. Only the
// first call has any effect.
func (s *Session) Close() {
	s.once.Do(func() {
		_, left, removed := s.reg.LeaveConn(s.roomID, s.conn.ID())
		if !left {
			return
		}

		s.log.Info().Bool("room_removed", removed).Msg("participant left")

		if removed {
			return
		}

		if r, ok := s.reg.Get(s.roomID); ok {
			s.broadcastPlayers(r)
		}
	})
}

func (s *Session) broadcastPlayers(r *Room) {
	var players, ready []string
	for _, p := range r.Snapshot() {
		players = append(players, p.Name)
		if p.Ready {
			ready = append(ready, p.Name)
		}
	}

	Broadcast(s.log, r, PerRecipient(func(p Participant) (any, error) {
		return s.render(View{
			Kind:         ViewPlayerList,
			RoomID:       s.roomID,
			Players:      players,
			ReadyPlayers: ready,
			PlayerName:   p.Name,
			MinPlayers:   r.MinPlayers(),
		})
	}))
}

func (s *Session) render(v View) (string, error) {
	return s.opts.Renderer.Render(v)
}

func (s *Session) sendView(v View) {
	msg, err := s.render(v)
	if err != nil {
		s.log.Error().Err(err).Str("view", v.Kind.String()).Msg("render failed")
		return
	}
	s.send(msg)
}

func (s *Session) send(msg any) {
	if err := s.conn.Send(msg); err != nil {
		s.log.Debug().Err(err).Msg("send failed")
	}
}
