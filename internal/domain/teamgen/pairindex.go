package teamgen

// PairWindow is the number of recent sessions considered when judging
// pairing novelty.
const PairWindow = 12

// PairIndex keeps the team rosters of the most recent sessions in a bounded
// ring buffer and answers how often two players shared a team inside the
// window. The count map is rebuilt on every Add, so lookups never write and
// a built index can be shared by concurrent search workers.
type PairIndex struct {
	window   int
	sessions [][][]string
	counts   map[string]int
}

func NewPairIndex(window int) *PairIndex {
	if window <= 0 {
		window = PairWindow
	}
	return &PairIndex{window: window}
}

// Add records one session's rosters, evicting the oldest session once the
// window is full. Not safe to call concurrently with Count.
func (p *PairIndex) Add(rosters [][]string) {
	copied := make([][]string, len(rosters))
	for i, roster := range rosters {
		copied[i] = append([]string(nil), roster...)
	}
	p.sessions = append(p.sessions, copied)
	if len(p.sessions) > p.window {
		p.sessions = p.sessions[len(p.sessions)-p.window:]
	}
	p.rebuild()
}

// Count reports how many windowed sessions had both names on one team.
func (p *PairIndex) Count(a, b string) int {
	if p == nil {
		return 0
	}
	return p.counts[pairKey(a, b)]
}

// Sessions reports how many sessions currently sit in the window.
func (p *PairIndex) Sessions() int {
	if p == nil {
		return 0
	}
	return len(p.sessions)
}

func (p *PairIndex) rebuild() {
	counts := make(map[string]int, len(p.counts))
	for _, session := range p.sessions {
		for _, roster := range session {
			for i := 0; i < len(roster); i++ {
				for j := i + 1; j < len(roster); j++ {
					counts[pairKey(roster[i], roster[j])]++
				}
			}
		}
	}
	p.counts = counts
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
