// Package proxy fetches URLs through a third-party fetch proxy, escalating
// through rendering and IP tiers only as far as a host requires.
package proxy

// Mode is a proxy fetch tier, ordered by credit cost.
type Mode int

const (
	// ModeNoJS fetches without JS rendering. Cheapest.
	ModeNoJS Mode = iota
	// ModeStandard renders JS on a datacenter IP.
	ModeStandard
	// ModePremium renders JS on a premium IP pool.
	ModePremium
	// ModeStealth renders JS on anti-bot IPs. Most expensive.
	ModeStealth
)

var modeNames = map[Mode]string{
	ModeNoJS:     "nojs",
	ModeStandard: "standard",
	ModePremium:  "premium",
	ModeStealth:  "stealth",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode maps a mode name back to its Mode. Unknown names fall back to
// ModeNoJS so stale cache entries degrade to the cheap path.
func ParseMode(name string) Mode {
	for mode, n := range modeNames {
		if n == name {
			return mode
		}
	}
	return ModeNoJS
}

// attempts is the transient-failure retry budget within one mode.
func (m Mode) attempts() int {
	switch m {
	case ModeStealth:
		return 1
	default:
		return 2
	}
}

// renders reports whether the mode renders JS.
func (m Mode) renders() bool {
	return m != ModeNoJS
}

// fullLadder is the escalation order for ordinary page fetches.
var fullLadder = []Mode{ModeNoJS, ModeStandard, ModePremium, ModeStealth}

// binaryLadder skips ModeStandard: without JS rendering it is
// indistinguishable from ModeNoJS, so only the IP tier escalates.
var binaryLadder = []Mode{ModeNoJS, ModePremium, ModeStealth}

// renderLadder is used when the caller mandates JS rendering.
var renderLadder = []Mode{ModeStandard, ModePremium, ModeStealth}

// ladderFor picks the escalation order for a request and drops tiers cheaper
// than the starting mode.
func ladderFor(opts Options, startAt Mode) []Mode {
	var ladder []Mode
	switch {
	case opts.Binary:
		ladder = binaryLadder
	case opts.RenderJS:
		ladder = renderLadder
	default:
		ladder = fullLadder
	}
	for i, mode := range ladder {
		if mode >= startAt {
			return ladder[i:]
		}
	}
	// The cached mode outranks the whole ladder; use it alone.
	return []Mode{startAt}
}

// capLadder drops tiers above what the provider can serve. A ladder that
// starts above the ceiling collapses to the ceiling itself so every fetch
// still has one tier to try.
func capLadder(ladder []Mode, ceiling Mode) []Mode {
	if ceiling >= ModeStealth {
		return ladder
	}
	capped := make([]Mode, 0, len(ladder))
	for _, mode := range ladder {
		if mode <= ceiling {
			capped = append(capped, mode)
		}
	}
	if len(capped) == 0 {
		return []Mode{ceiling}
	}
	return capped
}
