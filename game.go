package main

import (
	"errors"
	"net/http"

	"github.com/Seednode/readyroom/room"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// serveGame shows the roster of a started game to the players in it.
// Everyone else gets a 403 naming why they were turned away.
func (l *lobby) serveGame() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")

		token, err := l.cookies.fromRequest(r)
		if err != nil && !errors.Is(err, errNoCookie) {
			log.Debug().Err(err).Str("module", "game").Str("ip", realIP(r)).Msg("rejected player cookie")
		}

		name, roster, err := l.reg.Member(roomID, token)
		if err != nil {
			log.Debug().Err(err).Str("module", "game").Str("room", roomID).Str("ip", realIP(r)).Msg("game access denied")

			serveErrorPage(l.cfg, w, http.StatusForbidden, denialReason(err))

			return
		}

		body, err := l.renderer.page("game.html", pageData{
			RoomID:     roomID,
			Players:    roster,
			PlayerName: name,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "game").Msg("render game page")
			serveErrorPage(l.cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(l.cfg, w)

		_, _ = w.Write([]byte(body))
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return room.ErrRoomNotFound.Error()
	case errors.Is(err, room.ErrNoToken):
		return room.ErrNoToken.Error()
	case errors.Is(err, room.ErrNotInGame):
		return room.ErrNotInGame.Error()
	}
	return "access denied"
}
