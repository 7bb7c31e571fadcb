/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

// Inbound action names.
const (
	ActionJoin      = "join"
	ActionLeave     = "leave"
	ActionStartGame = "start_game"
)

// Action is one decoded message from a client.
type Action struct {
	Action     string  `json:"action"`
	PlayerName *string `json:"player_name,omitempty"`
}

type ViewKind int

const (
	// ViewPlayerList is the ready list, personalised per recipient.
	ViewPlayerList ViewKind = iota
	// ViewJoined confirms an accepted name to its owner.
	ViewJoined
	// ViewForm is the name entry form, optionally flagging a rejection.
	ViewForm
)

func (k ViewKind) String() string {
	switch k {
	case ViewPlayerList:
		return "player_list"
	case ViewJoined:
		return "joined"
	case ViewForm:
		return "form"
	}
	return "unknown"
}

// View is the state snapshot a Renderer turns into an opaque message.
type View struct {
	Kind         ViewKind
	RoomID       string
	Players      []string
	ReadyPlayers []string
	PlayerName   string
	MinPlayers   int
	NameTaken    bool
}

type Renderer interface {
	Render(v View) (string, error)
}

// GameStarted tells a player where the game lives.
type GameStarted struct {
	Type string `json:"type"` // "game-started"
	URL  string `json:"url"`
}

// Superseded tells a connection that a newer one took over its participant.
type Superseded struct {
	Type string `json:"type"` // "superseded"
}

// TokenUpdate asks the client to remember a token minted after the handshake.
type TokenUpdate struct {
	Type        string `json:"type"` // "update-player-token"
	PlayerToken string `json:"player_token"`
}
