package wsgateway

import (
	"encoding/json"
	"testing"

	"grebbot/internal/platform"
)

func TestDecodePresenceEvent(t *testing.T) {
	f := frame{Op: opEvent, Type: "presence", Data: json.RawMessage(`{
		"member": {"id": "u1", "username": "guybrush", "display_name": "Guybrush"},
		"before": "",
		"after": "Sea of Thieves"
	}`)}

	ev, ok, err := decodeEvent(f)
	if err != nil || !ok {
		t.Fatalf("decode: err=%v ok=%v", err, ok)
	}
	if ev.Kind != platform.EventPresence || ev.Presence == nil {
		t.Fatalf("wrong kind: %+v", ev)
	}
	p := ev.Presence
	if p.Member.ID != "u1" || p.Member.Name() != "Guybrush" {
		t.Errorf("member mismatch: %+v", p.Member)
	}
	if p.Before != "" || p.After != "Sea of Thieves" {
		t.Errorf("snapshot mismatch: before=%q after=%q", p.Before, p.After)
	}
}

func TestDecodeCommandEvent(t *testing.T) {
	f := frame{Op: opEvent, Type: "command", Data: json.RawMessage(`{
		"guild_id": "g1",
		"guild_name": "Crew",
		"channel_id": "c1",
		"author": {"id": "u1", "username": "guybrush"},
		"is_admin": true,
		"command": "subscribe",
		"args": ["#sailing"]
	}`)}

	ev, ok, err := decodeEvent(f)
	if err != nil || !ok {
		t.Fatalf("decode: err=%v ok=%v", err, ok)
	}
	cmd := ev.Command
	if cmd == nil || cmd.Command != "subscribe" || !cmd.IsAdmin {
		t.Fatalf("command mismatch: %+v", cmd)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "#sailing" {
		t.Errorf("args mismatch: %v", cmd.Args)
	}
}

func TestDecodeUnknownEventSkipped(t *testing.T) {
	_, ok, err := decodeEvent(frame{Op: opEvent, Type: "typing", Data: json.RawMessage(`{}`)})
	if err != nil || ok {
		t.Fatalf("unknown type should be skipped without error: err=%v ok=%v", err, ok)
	}
}

func TestWireErrorMapping(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{wireErrUnknownChannel, platform.ErrUnknownChannel},
		{wireErrUnknownUser, platform.ErrUnknownUser},
		{wireErrForbidden, platform.ErrForbidden},
	}
	for _, tc := range cases {
		if got := wireError(tc.in); got != tc.want {
			t.Errorf("wireError(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got := wireError("weird"); got == nil || got == platform.ErrForbidden {
		t.Errorf("unexpected mapping for unknown error: %v", got)
	}
}
