// Readyroom lobby
//
// Players open /lobby/:roomid, pick a name and mark themselves ready. Once
// enough players are ready, any ready player may start the game, which sends
// every ready player on to /game/:roomid.
//
// Features:
// - WebSockets per room: /lobby/:roomid and /lobby/:roomid/ws
// - Players identified by a signed cookie (player_token) that survives reconnects
// - Duplicate names rejected, rejection shown only to the offending client
// - Ready list pushed to every client, personalised per recipient
// - Rooms vanish when their last connection closes
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - QR code per room, backed by go-qrcode
// - Ping/pong keepalive, so idle-but-open tabs outlive --player-timeout
// - A newer tab with the same cookie takes over and closes the older one
// - Live name availability checks at /lobby/:roomid/validate-name

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/readyroom/room"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	maxMessageSize = 4096
	sendBuffer     = 16
	writeWait      = 5 * time.Second
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one WebSocket connection. It implements room.Conn.
type Client struct {
	id   room.ConnID
	conn *websocket.Conn
	send chan any

	mu     sync.Mutex
	closed bool
}

func newClient() *Client {
	return &Client{
		id:   room.NewConnID(),
		send: make(chan any, sendBuffer),
	}
}

func (c *Client) ID() room.ConnID { return c.id }

// Send queues msg without blocking. Strings go out as text frames, anything
// else as JSON.
func (c *Client) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return errBackpressure
	}
}

// Close stops the write pump once queued messages are flushed, which in turn
// closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(cfg *Config, sess *room.Session) {
	defer func() {
		sess.Close()
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	extend := func() {
		var deadline time.Time
		if cfg.playerTimeout > 0 {
			deadline = time.Now().Add(cfg.playerTimeout)
		}
		_ = c.conn.SetReadDeadline(deadline)
	}

	// Pongs answer the write pump's pings, so a quiet but live browser keeps
	// its seat.
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		extend()

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("module", "lobby").Str("conn", string(c.id)).Msg("connection lost")
			}

			return
		}

		var act room.Action
		if err := json.Unmarshal(data, &act); err != nil {
			log.Debug().Err(err).Str("module", "lobby").Str("conn", string(c.id)).Msg("ignored malformed action")

			continue
		}

		sess.Handle(act)
	}
}

// writePump drains the send queue. With a non-zero pingPeriod it also pings
// the peer so the read deadline is refreshed while nobody is typing.
func (c *Client) writePump(pingPeriod time.Duration) {
	defer c.conn.Close()

	var ping <-chan time.Time
	if pingPeriod > 0 {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			var err error
			switch m := msg.(type) {
			case string:
				err = c.conn.WriteMessage(websocket.TextMessage, []byte(m))
			default:
				err = c.conn.WriteJSON(m)
			}
			if err != nil {
				return
			}
		case <-ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pingPeriod leaves room for a pong to land well inside the idle timeout.
func pingPeriod(cfg *Config) time.Duration {
	return cfg.playerTimeout / 2
}

func (l *lobby) gameURL(roomID string) string {
	return l.cfg.prefix + "/game/" + url.PathEscape(roomID)
}

func (l *lobby) sessionOptions() room.SessionOptions {
	return room.SessionOptions{
		Renderer:    l.renderer,
		GameURL:     l.gameURL,
		EncodeToken: l.cookies.encode,
		Log:         log.Logger,
	}
}

// presentedToken is the caller's token, or "" when it has none or it fails
// verification.
func (l *lobby) presentedToken(r *http.Request) room.Token {
	token, err := l.cookies.fromRequest(r)
	if err != nil && !errors.Is(err, errNoCookie) {
		log.Debug().Err(err).Str("module", "lobby").Str("ip", realIP(r)).Msg("rejected player cookie")
	}
	return token
}

// serveWS attaches a WebSocket to the room named by :roomid.
func (l *lobby) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !roomIDPattern.MatchString(roomID) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		client := newClient()
		sess := room.NewSession(l.reg, roomID, client, l.sessionOptions())

		token, minted := sess.Open(l.presentedToken(r))

		header := http.Header{}
		if minted {
			cookie, err := l.cookies.cookie(l.cfg, token)
			if err != nil {
				sess.Close()
				http.Error(w, "unable to assign player token", http.StatusInternalServerError)
				return
			}
			header.Add("Set-Cookie", cookie.String())
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			log.Debug().Err(err).Str("module", "lobby").Str("room", roomID).Msg("upgrade failed")
			sess.Close()
			return
		}
		client.conn = conn

		log.Debug().
			Str("module", "lobby").
			Str("room", roomID).
			Str("conn", string(client.id)).
			Str("ip", realIP(r)).
			Bool("new_player", minted).
			Msg("ROOMS: connection opened")

		go client.writePump(pingPeriod(l.cfg))
		sess.Greet()
		client.readPump(l.cfg, sess)
	}
}

// servePage renders the lobby shell for :roomid.
func (l *lobby) servePage() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !roomIDPattern.MatchString(roomID) {
			serveErrorPage(l.cfg, w, http.StatusBadRequest, "Room names may only use letters, digits, dashes and underscores.")
			return
		}

		data := pageData{RoomID: roomID, MinPlayers: l.reg.Limits().MinPlayers}
		if rm, ok := l.reg.Get(roomID); ok {
			data.ReadyPlayers = rm.ReadyNames()
		}

		body, err := l.renderer.page("lobby.html", data)
		if err != nil {
			log.Error().Err(err).Str("module", "lobby").Msg("render lobby page")
			serveErrorPage(l.cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(l.cfg, w)

		_, _ = w.Write([]byte(body))
	}
}

// redirectRoom sends /lobby?room_id=X to /lobby/X, and a bare /lobby to a
// freshly generated room.
func (l *lobby) redirectRoom() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))

		if roomID == "" {
			roomID = l.reg.NewRoomID()
			log.Debug().Str("module", "lobby").Str("room", roomID).Msg("ROOMS: generated room id")
			http.Redirect(w, r, l.cfg.prefix+"/lobby/"+roomID, http.StatusTemporaryRedirect)
			return
		}

		if !roomIDPattern.MatchString(roomID) {
			serveErrorPage(l.cfg, w, http.StatusBadRequest, "Room names may only use letters, digits, dashes and underscores.")
			return
		}

		http.Redirect(w, r, l.cfg.prefix+"/lobby/"+roomID, http.StatusFound)
	}
}

// serveNameCheck answers whether ?name= could be claimed in :roomid by the
// caller, without claiming it.
func (l *lobby) serveNameCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !roomIDPattern.MatchString(roomID) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		name := r.URL.Query().Get("name")
		data := pageData{NameAvailable: l.reg.NameAvailable(roomID, l.presentedToken(r), name)}
		if !data.NameAvailable && strings.TrimSpace(name) != "" {
			data.NameMessage = "That name is taken or invalid."
		}

		body, err := l.renderer.page("name_check.html", data)
		if err != nil {
			log.Error().Err(err).Str("module", "lobby").Msg("render name check")
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(l.cfg, w)

		_, _ = w.Write([]byte(body))
	}
}

// serveQR renders a PNG QR code pointing at the lobby page.
func (l *lobby) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !roomIDPattern.MatchString(roomID) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		target := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(l.cfg, w)
		_, _ = w.Write(png)
	}
}

// registerLobby sets up routes so that:
//   - /lobby                 → redirects to ?room_id or a new random room
//   - /lobby/:roomid         → HTML client
//   - /lobby/:roomid/ws      → WebSocket for that room
//   - /lobby/:roomid/qr      → PNG QR code for that room
//   - /lobby/:roomid/validate-name → name availability fragment
//   - /game/:roomid          → game page for players handed off by that room
func registerLobby(l *lobby, mux *httprouter.Router) {
	prefix := l.cfg.prefix

	mux.GET(prefix+"/lobby", l.redirectRoom())
	mux.GET(prefix+"/lobby/:roomid", l.servePage())
	mux.GET(prefix+"/lobby/:roomid/ws", l.serveWS())
	mux.GET(prefix+"/lobby/:roomid/qr", l.serveQR())
	mux.GET(prefix+"/lobby/:roomid/validate-name", l.serveNameCheck())
	mux.GET(prefix+"/game/:roomid", l.serveGame())
}
