package matching

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Domenick1991/flightbuddy/internal/domain"
)

const (
	scoreAdjacentVacant = 30
	scoreSameRowVacant  = 15
	scoreBio            = 10
	scorePerInterest    = 2
	scorePerLanguage    = 3
	scorePerSkill       = 2

	maxAdjacentSeats = 3
)

// rowLetters is a single aisle group; cabin layout is not modelled.
var rowLetters = []byte{'A', 'B', 'C', 'D', 'E', 'F'}

var seatPattern = regexp.MustCompile(`^([1-9][0-9]*)([A-F])$`)

// Candidate is a companion already seated on the flight.
type Candidate struct {
	Profile domain.CompanionProfile
	Seat    string
}

type seat struct {
	row    int
	letter byte
}

func (s seat) String() string {
	return strconv.Itoa(s.row) + string(s.letter)
}

// parseSeat accepts "<row><A-F>". "TBD" and anything else fail without error.
func parseSeat(raw string) (seat, bool) {
	m := seatPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return seat{}, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return seat{}, false
	}
	return seat{row: row, letter: m[2][0]}, true
}

func adjacentLetters(letter byte) []byte {
	idx := strings.IndexByte(string(rowLetters), letter)
	if idx < 0 {
		return nil
	}
	var out []byte
	if idx > 0 {
		out = append(out, rowLetters[idx-1])
	}
	if idx < len(rowLetters)-1 {
		out = append(out, rowLetters[idx+1])
	}
	return out
}

// Match ranks candidates by seat availability around them and profile richness.
// Ties keep input order.
func Match(candidates []Candidate) []domain.CompanionCandidate {
	occupied := make(map[seat]struct{}, len(candidates))
	for _, c := range candidates {
		if s, ok := parseSeat(c.Seat); ok {
			occupied[s] = struct{}{}
		}
	}

	out := make([]domain.CompanionCandidate, 0, len(candidates))
	for _, c := range candidates {
		result := domain.CompanionCandidate{
			CompanionID:            c.Profile.ID,
			Name:                   c.Profile.Name,
			CurrentSeat:            c.Seat,
			AvailableAdjacentSeats: []string{},
		}

		if s, ok := parseSeat(c.Seat); ok {
			for _, l := range adjacentLetters(s.letter) {
				neighbour := seat{row: s.row, letter: l}
				if _, taken := occupied[neighbour]; taken {
					continue
				}
				result.HasAdjacentVacant = true
				if len(result.AvailableAdjacentSeats) < maxAdjacentSeats {
					result.AvailableAdjacentSeats = append(result.AvailableAdjacentSeats, neighbour.String())
				}
			}
			for _, l := range rowLetters {
				if l == s.letter {
					continue
				}
				if _, taken := occupied[seat{row: s.row, letter: l}]; !taken {
					result.SameRowVacant = true
					break
				}
			}
		}

		result.MatchScore = score(result, c.Profile)
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out
}

func score(c domain.CompanionCandidate, p domain.CompanionProfile) int {
	total := 0
	switch {
	case c.HasAdjacentVacant:
		total += scoreAdjacentVacant
	case c.SameRowVacant:
		total += scoreSameRowVacant
	}
	if strings.TrimSpace(p.Bio) != "" {
		total += scoreBio
	}
	total += scorePerInterest * len(p.Interests)
	total += scorePerLanguage * len(p.Languages)
	total += scorePerSkill * len(p.Skills)
	return total
}
