package room

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type textRenderer struct{}

func (textRenderer) Render(v View) (string, error) {
	return fmt.Sprintf("%s|ready=%s|me=%s|taken=%t",
		v.Kind, strings.Join(v.ReadyPlayers, ","), v.PlayerName, v.NameTaken), nil
}

func newTestSession(reg *Registry, roomID string) (*Session, *fakeConn) {
	conn := newFakeConn()
	s := NewSession(reg, roomID, conn, SessionOptions{
		Renderer: textRenderer{},
		Log:      zerolog.Nop(),
	})
	return s, conn
}

func strPtr(s string) *string { return &s }

func join(name string) Action {
	return Action{Action: ActionJoin, PlayerName: strPtr(name)}
}

func gameStartedTo(c *fakeConn) (GameStarted, bool) {
	for _, msg := range c.messages() {
		if gs, ok := msg.(GameStarted); ok {
			return gs, true
		}
	}
	return GameStarted{}, false
}

func TestSessionScenarioA(t *testing.T) {
	reg := newTestRegistry(1)
	s, conn := newTestSession(reg, "R1")

	token, minted := s.Open("")
	if !minted {
		t.Fatal("expected a fresh token")
	}
	s.Greet()
	greeting := conn.messages()
	if len(greeting) != 2 || greeting[0] != "player_list|ready=|me=|taken=false" || greeting[1] != "form|ready=|me=|taken=false" {
		t.Fatalf("unexpected greeting %v", greeting)
	}

	s.Handle(join("Alice"))
	r, _ := reg.Get("R1")
	if r.ReadyCount() != 1 {
		t.Fatalf("expected one ready player, got %d", r.ReadyCount())
	}
	if got := conn.last(); got != "joined|ready=|me=Alice|taken=false" {
		t.Fatalf("expected joined view, got %v", got)
	}

	s.Handle(Action{Action: ActionStartGame})
	gs, ok := gameStartedTo(conn)
	if !ok || gs.URL != "/game/R1" || gs.Type != "game-started" {
		t.Fatalf("expected game-started, got %+v (%v)", gs, ok)
	}

	name, roster, err := reg.Member("R1", token)
	if err != nil || name != "Alice" || len(roster) != 1 {
		t.Fatalf("unexpected game: %q %v %v", name, roster, err)
	}

	count := len(conn.messages())
	s.Handle(Action{Action: ActionStartGame})
	if len(conn.messages()) != count {
		t.Fatal("second start must be a silent no-op")
	}
}

func TestSessionScenarioB(t *testing.T) {
	reg := newTestRegistry(4)

	var sessions []*Session
	var conns []*fakeConn
	for _, name := range []string{"A", "B", "C"} {
		s, c := newTestSession(reg, "R2")
		s.Open("")
		s.Handle(join(name))
		sessions = append(sessions, s)
		conns = append(conns, c)
	}

	sessions[2].Handle(Action{Action: ActionStartGame})
	if _, ok := reg.Game("R2"); ok {
		t.Fatal("three ready players must not start a game")
	}

	s, c := newTestSession(reg, "R2")
	s.Open("")
	s.Handle(join("D"))
	conns = append(conns, c)

	if got := conns[0].last(); got != "player_list|ready=A,B,C,D|me=A|taken=false" {
		t.Fatalf("expected personalised list for A, got %v", got)
	}

	sessions[1].Handle(Action{Action: ActionStartGame})
	for i, c := range conns {
		if _, ok := gameStartedTo(c); !ok {
			t.Fatalf("player %d did not receive game-started", i)
		}
	}
}

func TestSessionScenarioC(t *testing.T) {
	reg := newTestRegistry(1)
	first, _ := newTestSession(reg, "R")
	second, conn := newTestSession(reg, "R")
	first.Open("")
	token, _ := second.Open("")

	first.Handle(join("Bob"))
	second.Handle(join("Bob"))

	if got := conn.last(); got != "form|ready=|me=|taken=true" {
		t.Fatalf("expected rejection form, got %v", got)
	}

	r, _ := reg.Get("R")
	if p, _ := r.Participant(token); p.Name != "" {
		t.Fatalf("second participant should stay unnamed, got %q", p.Name)
	}
}

func TestSessionScenarioD(t *testing.T) {
	reg := newTestRegistry(1)
	s, conn := newTestSession(reg, "R")
	other, otherConn := newTestSession(reg, "R")
	s.Open("")
	other.Open("")

	s.Handle(join("Carl"))
	if got := otherConn.last(); got != "player_list|ready=Carl|me=|taken=false" {
		t.Fatalf("expected Carl in list, got %v", got)
	}

	s.Handle(Action{Action: ActionLeave})
	if got := otherConn.last(); got != "player_list|ready=|me=|taken=false" {
		t.Fatalf("expected empty ready list, got %v", got)
	}
	if got := conn.last(); got != "form|ready=|me=|taken=false" {
		t.Fatalf("expected form view, got %v", got)
	}

	r, _ := reg.Get("R")
	if r.Len() != 2 {
		t.Fatalf("participant should remain after un-readying, len=%d", r.Len())
	}
}

func TestSessionScenarioE(t *testing.T) {
	reg := newTestRegistry(1)
	s, _ := newTestSession(reg, "R")
	s.Open("")

	s.Close()
	if _, ok := reg.Get("R"); ok {
		t.Fatal("room should be removed after its only participant disconnected")
	}

	a, _ := newTestSession(reg, "R2")
	b, bConn := newTestSession(reg, "R2")
	a.Open("")
	b.Open("")
	a.Handle(join("Ann"))

	a.Close()
	a.Close()

	r, ok := reg.Get("R2")
	if !ok || r.Len() != 1 {
		t.Fatal("expected one participant left in R2")
	}
	if got := bConn.last(); got != "player_list|ready=|me=|taken=false" {
		t.Fatalf("remaining participant should see the update, got %v", got)
	}
}

func TestSessionJoinsOnDemand(t *testing.T) {
	reg := newTestRegistry(1)
	s, conn := newTestSession(reg, "R")

	s.Handle(join("Zed"))

	msgs := conn.messages()
	if len(msgs) == 0 {
		t.Fatal("expected messages")
	}
	update, ok := msgs[0].(TokenUpdate)
	if !ok || update.Type != "update-player-token" || update.PlayerToken == "" {
		t.Fatalf("expected token update first, got %#v", msgs[0])
	}

	r, _ := reg.Get("R")
	token, _ := r.TokenOf(conn.ID())
	if string(token) != update.PlayerToken {
		t.Fatalf("client was told %q, participant holds %q", update.PlayerToken, token)
	}
	if names := r.ReadyNames(); len(names) != 1 || names[0] != "Zed" {
		t.Fatalf("expected Zed ready, got %v", names)
	}
}

func TestSessionReconnectWithToken(t *testing.T) {
	reg := newTestRegistry(1)
	first, _ := newTestSession(reg, "R")
	token, _ := first.Open("")
	first.Handle(join("Ida"))

	second, _ := newTestSession(reg, "R")
	again, minted := second.Open(token)
	if minted || again != token {
		t.Fatalf("expected to keep %q, got %q minted=%v", token, again, minted)
	}

	first.Close()

	r, ok := reg.Get("R")
	if !ok || r.ReadyCount() != 1 {
		t.Fatal("the stale connection closing must not drop the reconnected player")
	}
}

func TestSessionReconnectSupersedesOldConnection(t *testing.T) {
	reg := newTestRegistry(1)
	first, firstConn := newTestSession(reg, "R")
	token, _ := first.Open("")
	first.Handle(join("Ivy"))

	second, secondConn := newTestSession(reg, "R")
	second.Open(token)

	if !firstConn.isClosed() {
		t.Fatal("the replaced connection should be closed")
	}
	if got, ok := firstConn.last().(Superseded); !ok || got.Type != "superseded" {
		t.Fatalf("expected a superseded notice last, got %#v", firstConn.last())
	}
	if secondConn.isClosed() {
		t.Fatal("the new connection must stay open")
	}

	third, thirdConn := newTestSession(reg, "R")
	third.Open("")
	third.Handle(join("Zed"))

	if got := secondConn.last(); got != "player_list|ready=Ivy,Zed|me=Ivy|taken=false" {
		t.Fatalf("the new connection should receive broadcasts, got %v", got)
	}
	if got := thirdConn.last(); got != "joined|ready=|me=Zed|taken=false" {
		t.Fatalf("unexpected confirmation %v", got)
	}
}

func TestSessionGreetShowsControlsForState(t *testing.T) {
	reg := newTestRegistry(1)
	first, _ := newTestSession(reg, "R")
	token, _ := first.Open("")
	first.Handle(join("Ivy"))

	second, conn := newTestSession(reg, "R")
	second.Open(token)
	second.Greet()

	if got := conn.last(); got != "joined|ready=|me=Ivy|taken=false" {
		t.Fatalf("a named player should get the joined controls, got %v", got)
	}

	fresh, freshConn := newTestSession(reg, "R")
	fresh.Open(token + "-unknown")
	fresh.Greet()

	if got := freshConn.last(); got != "form|ready=|me=|taken=false" {
		t.Fatalf("an unnamed player should get the form, got %v", got)
	}
}

func TestSessionIgnoresUnknownActions(t *testing.T) {
	reg := newTestRegistry(1)
	s, conn := newTestSession(reg, "R")
	s.Open("")

	s.Handle(Action{Action: "dance"})
	if len(conn.messages()) != 0 {
		t.Fatalf("unknown actions should produce nothing, got %v", conn.messages())
	}
}

func TestSessionStartRequiresReadyRequester(t *testing.T) {
	reg := newTestRegistry(1)
	ready, _ := newTestSession(reg, "R")
	idle, _ := newTestSession(reg, "R")
	ready.Open("")
	idle.Open("")
	ready.Handle(join("Rae"))

	idle.Handle(Action{Action: ActionStartGame})
	if _, ok := reg.Game("R"); ok {
		t.Fatal("a participant that is not ready must not start the game")
	}
}

func TestSessionUsesGameURL(t *testing.T) {
	reg := newTestRegistry(1)
	conn := newFakeConn()
	s := NewSession(reg, "R", conn, SessionOptions{
		Renderer: textRenderer{},
		GameURL:  func(id string) string { return "/party/game/" + id },
		Log:      zerolog.Nop(),
	})
	s.Open("")
	s.Handle(join("Uma"))
	s.Handle(Action{Action: ActionStartGame})

	if gs, _ := gameStartedTo(conn); gs.URL != "/party/game/R" {
		t.Fatalf("unexpected url %q", gs.URL)
	}
}
