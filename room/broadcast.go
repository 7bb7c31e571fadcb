/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"github.com/rs/zerolog"
)

// Payload is what Broadcast delivers: either Fixed or PerRecipient.
type Payload interface {
	messageFor(p Participant) (any, error)
}

// Fixed sends the same message to every participant.
type Fixed struct {
	Msg any
}

func (f Fixed) messageFor(Participant) (any, error) { return f.Msg, nil }

// PerRecipient builds a message from each recipient's own state.
type PerRecipient func(p Participant) (any, error)

func (f PerRecipient) messageFor(p Participant) (any, error) { return f(p) }

// Broadcast delivers payload to every connection in r and returns how many
// deliveries succeeded. Membership is copied before sending, so a failing or
// disconnecting recipient never disturbs the others.
func Broadcast(log zerolog.Logger, r *Room, payload Payload) int {
	sent := 0

	for _, p := range r.Snapshot() {
		msg, err := payload.messageFor(p)
		if err != nil {
			log.Warn().Err(err).Str("room", r.ID()).Str("conn", string(p.Conn.ID())).Msg("render failed")
			continue
		}

		if err := p.Conn.Send(msg); err != nil {
			log.Debug().Err(err).Str("room", r.ID()).Str("conn", string(p.Conn.ID())).Msg("send failed")
			continue
		}

		sent++
	}

	return sent
}
