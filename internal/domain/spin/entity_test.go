package spin

import (
	"errors"
	"testing"
)

func TestParseTableDefault(t *testing.T) {
	table, err := ParseTable(DefaultPrizes)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if table.TotalWeight() != 100 {
		t.Fatalf("TotalWeight = %d, want 100", table.TotalWeight())
	}
	prizes := table.Prizes()
	if len(prizes) != 5 || prizes[0].CoinValue != 0 || prizes[4].CoinValue != 50 {
		t.Fatalf("unexpected prizes %+v", prizes)
	}
}

func TestParseTableLabelWithColon(t *testing.T) {
	table, err := ParseTable("Jackpot: 100 coins:100:1, Nothing:0:9")
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	p := table.Prizes()[0]
	if p.Label != "Jackpot: 100 coins" || p.CoinValue != 100 || p.Weight != 1 {
		t.Fatalf("unexpected prize %+v", p)
	}
}

func TestParseTableRejectsInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"only:two",
		"bad:x:1",
		"bad:1:x",
		"zero weight:5:0",
		"negative:-1:3",
	} {
		if _, err := ParseTable(in); !errors.Is(err, ErrInvalidPrizeTable) {
			t.Fatalf("ParseTable(%q): expected ErrInvalidPrizeTable, got %v", in, err)
		}
	}
}

func TestPickWalksCumulativeWeights(t *testing.T) {
	table, err := NewTable([]Prize{
		{Label: "a", CoinValue: 0, Weight: 3},
		{Label: "b", CoinValue: 5, Weight: 2},
		{Label: "c", CoinValue: 10, Weight: 1},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	want := []string{"a", "a", "a", "b", "b", "c"}
	for draw, label := range want {
		p, err := table.Pick(draw)
		if err != nil {
			t.Fatalf("Pick(%d): %v", draw, err)
		}
		if p.Label != label {
			t.Fatalf("Pick(%d) = %q, want %q", draw, p.Label, label)
		}
	}

	if _, err := table.Pick(6); err == nil {
		t.Fatal("expected error for draw at total weight")
	}
	if _, err := table.Pick(-1); err == nil {
		t.Fatal("expected error for negative draw")
	}
}

func TestRandomDrawerStaysInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if d := RandomDrawer.Draw(7); d < 0 || d >= 7 {
			t.Fatalf("Draw(7) = %d", d)
		}
	}
}
