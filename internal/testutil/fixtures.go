package testutil

import (
	"encoding/json"
	"strconv"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
)

// SampleGame returns a minimal game fixture with the provided id.
func SampleGame(id string) games.Game {
	return games.Game{
		ID:        json.RawMessage(strconv.Quote(id)),
		ShortName: json.RawMessage(`"AWY @ HME"`),
		Status:    json.RawMessage(`"STATUS_SCHEDULED"`),
		Teams: []games.TeamSide{
			{HomeAway: json.RawMessage(`"home"`), Abbreviation: json.RawMessage(`"HME"`), Score: json.RawMessage(`"0"`)},
			{HomeAway: json.RawMessage(`"away"`), Abbreviation: json.RawMessage(`"AWY"`), Score: json.RawMessage(`"0"`)},
		},
	}
}

// SampleGames returns one fixture per id, in order.
func SampleGames(ids ...string) []games.Game {
	out := make([]games.Game, 0, len(ids))
	for _, id := range ids {
		out = append(out, SampleGame(id))
	}
	return out
}
