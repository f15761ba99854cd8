package games

import "encoding/json"

// HomeAway values used by providers for TeamSide.HomeAway.
const (
	SideHome = "home"
	SideAway = "away"
)

// TeamSide is one competitor in a normalized game.
// Scalar fields carry the provider's raw JSON value; an absent field stays nil and
// serializes as null so a missing score never reads as zero.
type TeamSide struct {
	HomeAway         json.RawMessage `json:"homeAway"`
	Abbreviation     json.RawMessage `json:"abbreviation"`
	Color            json.RawMessage `json:"color"`
	AlternateColor   json.RawMessage `json:"alternateColor"`
	Score            json.RawMessage `json:"score"`
	Record           string          `json:"record"`
	Logo             json.RawMessage `json:"logo"`
	DisplayName      json.RawMessage `json:"displayName,omitempty"`
	ShortDisplayName json.RawMessage `json:"shortDisplayName,omitempty"`
}

// Game is the flattened game record broadcast to display clients.
type Game struct {
	ID        json.RawMessage `json:"id"`
	UID       json.RawMessage `json:"uid,omitempty"`
	Date      json.RawMessage `json:"date,omitempty"`
	Name      json.RawMessage `json:"name,omitempty"`
	ShortName json.RawMessage `json:"shortName"`
	WeekText  json.RawMessage `json:"weekText"`
	Status    json.RawMessage `json:"status"`
	Summary   json.RawMessage `json:"summary"`
	Period    json.RawMessage `json:"period"`
	Clock     json.RawMessage `json:"clock"`
	Teams     []TeamSide      `json:"teams"`
}

// IDString returns the game id as a plain string, unquoting JSON strings.
func (g Game) IDString() string {
	return rawString(g.ID)
}

// Side returns the home or away value of a team, unquoted.
func (t TeamSide) Side() string {
	return rawString(t.HomeAway)
}

// AbbreviationString returns the team abbreviation, unquoted.
func (t TeamSide) AbbreviationString() string {
	return rawString(t.Abbreviation)
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// Flatten concatenates per-feed game slices in order, never returning nil.
func Flatten(groups ...[]Game) []Game {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	out := make([]Game, 0, total)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
