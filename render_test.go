package main

import (
	"strings"
	"testing"

	"github.com/Seednode/readyroom/room"
)

func TestRenderViews(t *testing.T) {
	vr, err := newViewRenderer(testConfig())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	tests := []struct {
		name string
		view room.View
		want []string
	}{
		{
			name: "empty player list",
			view: room.View{Kind: room.ViewPlayerList, MinPlayers: 4},
			want: []string{`data-slot="players"`, "(0/4)", "Nobody is ready yet."},
		},
		{
			name: "personalised player list",
			view: room.View{Kind: room.ViewPlayerList, ReadyPlayers: []string{"Ann", "Bo"}, PlayerName: "Bo", MinPlayers: 2},
			want: []string{"(2/2)", "<li>Ann</li>", `<li class="me">Bo</li>`},
		},
		{
			name: "joined",
			view: room.View{Kind: room.ViewJoined, PlayerName: "Ann"},
			want: []string{`data-slot="controls"`, "You are in as <strong>Ann</strong>", `data-action="start_game"`},
		},
		{
			name: "form",
			view: room.View{Kind: room.ViewForm},
			want: []string{`data-action="join"`, `maxlength="31"`},
		},
		{
			name: "rejected form",
			view: room.View{Kind: room.ViewForm, NameTaken: true},
			want: []string{"That name is taken"},
		},
		{
			name: "escaped names",
			view: room.View{Kind: room.ViewPlayerList, ReadyPlayers: []string{`<script>alert(1)</script>`}},
			want: []string{"&lt;script&gt;alert(1)&lt;/script&gt;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vr.Render(tt.view)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Fatalf("render missing %q in:\n%s", want, got)
				}
			}
			if strings.Contains(got, "<script>") {
				t.Fatal("names must be escaped")
			}
		})
	}

	form, _ := vr.Render(room.View{Kind: room.ViewForm})
	if strings.Contains(form, "That name is taken") {
		t.Fatal("a plain form must not show the rejection")
	}
}
