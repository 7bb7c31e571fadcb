package main

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/Seednode/readyroom/room"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is what every template sees.
type pageData struct {
	Prefix       string
	Favicon      template.HTML
	RoomID       string
	Players      []string
	ReadyPlayers []string
	PlayerName   string
	MinPlayers   int
	NameMaxLen   int
	NameTaken    bool

	NameAvailable bool
	NameMessage   string
}

// viewRenderer turns room views and pages into HTML.
type viewRenderer struct {
	cfg *Config
	t   *template.Template
}

func newViewRenderer(cfg *Config) (*viewRenderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &viewRenderer{cfg: cfg, t: t}, nil
}

func (vr *viewRenderer) page(name string, data pageData) (string, error) {
	data.Prefix = vr.cfg.prefix
	data.Favicon = template.HTML(getFavicon(html.EscapeString(vr.cfg.prefix)))
	if data.NameMaxLen == 0 {
		data.NameMaxLen = vr.cfg.maxNameLength - 1
	}

	var b strings.Builder
	if err := vr.t.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	return b.String(), nil
}

// Render implements room.Renderer.
func (vr *viewRenderer) Render(v room.View) (string, error) {
	return vr.page(v.Kind.String()+".html", pageData{
		RoomID:       v.RoomID,
		Players:      v.Players,
		ReadyPlayers: v.ReadyPlayers,
		PlayerName:   v.PlayerName,
		MinPlayers:   v.MinPlayers,
		NameTaken:    v.NameTaken,
	})
}
