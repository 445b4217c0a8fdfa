package pvp

import (
	"database/sql"
	"testing"
	"time"

	"github.com/gridstake/backend/internal/models"
)

func TestBlitzDurations(t *testing.T) {
	cases := map[string]time.Duration{
		models.BlitzOff: 0,
		models.Blitz7s:  7 * time.Second,
		models.Blitz5s:  5 * time.Second,
		"garbage":       0,
	}
	for preset, want := range cases {
		if got := BlitzDuration(preset); got != want {
			t.Errorf("BlitzDuration(%q) = %v, want %v", preset, got, want)
		}
	}
}

func TestValidBlitz(t *testing.T) {
	for _, preset := range []string{models.BlitzOff, models.Blitz7s, models.Blitz5s} {
		if !ValidBlitz(preset) {
			t.Errorf("ValidBlitz(%q) = false", preset)
		}
	}
	if ValidBlitz("10s") {
		t.Error(`ValidBlitz("10s") = true`)
	}
}

func TestSymbolFor(t *testing.T) {
	m := &models.PvpMatch{
		PlayerX: sql.NullString{String: "0xaa", Valid: true},
		PlayerO: sql.NullString{String: "0xbb", Valid: true},
	}

	if sym, err := symbolFor(m, "0xaa"); err != nil || sym != 'X' {
		t.Errorf("expected X for player_x, got %q err=%v", sym, err)
	}
	if sym, err := symbolFor(m, "0xbb"); err != nil || sym != 'O' {
		t.Errorf("expected O for player_o, got %q err=%v", sym, err)
	}
	if _, err := symbolFor(m, "0xcc"); err != ErrNotSeated {
		t.Errorf("expected ErrNotSeated for stranger, got %v", err)
	}
}

func TestTimedOut(t *testing.T) {
	now := time.Now()
	past := sql.NullTime{Time: now.Add(-time.Second), Valid: true}
	future := sql.NullTime{Time: now.Add(5 * time.Second), Valid: true}

	cases := []struct {
		name string
		m    models.PvpMatch
		want bool
	}{
		{
			name: "expired deadline on active blitz match",
			m:    models.PvpMatch{Status: models.MatchActive, Blitz: models.Blitz5s, TurnDeadline: past},
			want: true,
		},
		{
			name: "future deadline",
			m:    models.PvpMatch{Status: models.MatchActive, Blitz: models.Blitz5s, TurnDeadline: future},
			want: false,
		},
		{
			name: "untimed match never times out",
			m:    models.PvpMatch{Status: models.MatchActive, Blitz: models.BlitzOff, TurnDeadline: past},
			want: false,
		},
		{
			name: "finished match is left alone",
			m:    models.PvpMatch{Status: models.MatchDone, Blitz: models.Blitz5s, TurnDeadline: past},
			want: false,
		},
		{
			name: "blitz match with no deadline yet",
			m:    models.PvpMatch{Status: models.MatchActive, Blitz: models.Blitz7s},
			want: false,
		},
	}
	for _, tc := range cases {
		if got := timedOut(&tc.m, now); got != tc.want {
			t.Errorf("%s: timedOut = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFirstDeadline(t *testing.T) {
	if d := firstDeadline(models.BlitzOff); d.Valid {
		t.Error("untimed match should have no deadline")
	}
	d := firstDeadline(models.Blitz5s)
	if !d.Valid {
		t.Fatal("blitz match should have a deadline")
	}
	until := time.Until(d.Time)
	if until < 4*time.Second || until > 6*time.Second {
		t.Errorf("5s preset deadline %v away, want ~5s", until)
	}
}
