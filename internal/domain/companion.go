package domain

// CompanionProfile is the part of a companion's onboarding profile used for ranking.
type CompanionProfile struct {
	ID             string
	Name           string
	Bio            string
	Interests      []string
	Languages      []string
	Skills         []string
	PayoutsEnabled bool
}

// CompanionCandidate is one ranked search result. It is never persisted.
type CompanionCandidate struct {
	CompanionID            string   `json:"companion_id"`
	Name                   string   `json:"name,omitempty"`
	CurrentSeat            string   `json:"current_seat"`
	HasAdjacentVacant      bool     `json:"has_adjacent_vacant"`
	SameRowVacant          bool     `json:"same_row_vacant"`
	AvailableAdjacentSeats []string `json:"available_adjacent_seats"`
	MatchScore             int      `json:"match_score"`
}
