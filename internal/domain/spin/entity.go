package spin

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// DefaultPrizes is used when SPIN_PRIZES is not configured
const DefaultPrizes = "Better luck next time:0:40,5 coins:5:30,10 coins:10:20,25 coins:25:8,50 coins:50:2"

// Prize is one wheel segment
type Prize struct {
	Label     string `json:"label"`
	CoinValue int64  `json:"coin_value"`
	Weight    int    `json:"weight"`
}

// Table is an ordered weighted prize list
type Table struct {
	prizes []Prize
	total  int
}

// NewTable validates prizes and precomputes the total weight
func NewTable(prizes []Prize) (*Table, error) {
	if len(prizes) == 0 {
		return nil, fmt.Errorf("%w: no prizes", ErrInvalidPrizeTable)
	}
	t := &Table{prizes: append([]Prize(nil), prizes...)}
	for _, p := range prizes {
		if p.Weight <= 0 {
			return nil, fmt.Errorf("%w: prize %q has weight %d", ErrInvalidPrizeTable, p.Label, p.Weight)
		}
		if p.CoinValue < 0 {
			return nil, fmt.Errorf("%w: prize %q has negative value", ErrInvalidPrizeTable, p.Label)
		}
		t.total += p.Weight
	}
	return t, nil
}

// ParseTable reads "label:coins:weight" entries separated by commas.
// Labels may contain colons; the last two fields are numeric.
func ParseTable(s string) (*Table, error) {
	var prizes []Prize
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: entry %q", ErrInvalidPrizeTable, entry)
		}
		n := len(parts)
		coins, err := strconv.ParseInt(strings.TrimSpace(parts[n-2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: coins: %v", ErrInvalidPrizeTable, entry, err)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(parts[n-1]))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: weight: %v", ErrInvalidPrizeTable, entry, err)
		}
		prizes = append(prizes, Prize{
			Label:     strings.TrimSpace(strings.Join(parts[:n-2], ":")),
			CoinValue: coins,
			Weight:    weight,
		})
	}
	return NewTable(prizes)
}

func (t *Table) Prizes() []Prize {
	return append([]Prize(nil), t.prizes...)
}

func (t *Table) TotalWeight() int {
	return t.total
}

// Pick returns the first prize whose cumulative weight exceeds draw.
// draw must be in [0, TotalWeight).
func (t *Table) Pick(draw int) (Prize, error) {
	if draw < 0 || draw >= t.total {
		return Prize{}, fmt.Errorf("draw %d outside [0, %d)", draw, t.total)
	}
	cumulative := 0
	for _, p := range t.prizes {
		cumulative += p.Weight
		if draw < cumulative {
			return p, nil
		}
	}
	return t.prizes[len(t.prizes)-1], nil
}

// Drawer yields a uniform integer in [0, n)
type Drawer interface {
	Draw(n int) int
}

// DrawerFunc adapts a function to Drawer
type DrawerFunc func(n int) int

func (f DrawerFunc) Draw(n int) int { return f(n) }

// RandomDrawer draws from math/rand's global source
var RandomDrawer Drawer = DrawerFunc(rand.Intn)

// Policy bounds how often a user may spin
type Policy struct {
	MaxSpins int
	Window   time.Duration
}

// Claim is the wallet spin state after a successful claim
type Claim struct {
	SpinsToday  int       `db:"spins_today"`
	WindowStart time.Time `db:"spin_window_start"`
}

// Result is returned to the client after a spin
type Result struct {
	CoinsWon   int64     `json:"coins_won"`
	Label      string    `json:"label"`
	SpinsToday int       `json:"spins_today"`
	MaxSpins   int       `json:"max_spins"`
	NextSpinAt time.Time `json:"next_spin_at"`
	Balance    int64     `json:"balance"`
}

// Status describes the user's current allowance
type Status struct {
	SpinsToday int        `json:"spins_today"`
	MaxSpins   int        `json:"max_spins"`
	CanSpin    bool       `json:"can_spin"`
	NextSpinAt *time.Time `json:"next_spin_at,omitempty"`
}
