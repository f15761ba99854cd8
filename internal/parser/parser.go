// Package parser turns raw scoreboard payloads into normalized games.
//
// Two payload shapes are recognized. The pro shape nests events under
// sports[].leagues[].events[] with competitor fields directly on each competitor. The
// college shape lists events[] at the top level with the game itself in competitions[0]
// and team fields under competitor.team. Anything else parses to zero games.
//
// Scalars are copied verbatim from the payload; a missing path yields nil, never a zero.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
)

// ErrInvalidJSON is returned for payloads that are not well-formed JSON.
var ErrInvalidJSON = errors.New("invalid feed json")

// Shape identifies a payload layout.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapePro
	ShapeCollege
)

func (s Shape) String() string {
	switch s {
	case ShapePro:
		return "pro"
	case ShapeCollege:
		return "college"
	default:
		return "unknown"
	}
}

// Reader loads raw feed files by name.
type Reader interface {
	Read(file string) ([]byte, error)
}

// Parse normalizes raw. Invalid JSON is an error; an unknown shape is not.
func Parse(raw []byte) ([]games.Game, error) {
	out, _, err := ParseShape(raw)
	return out, err
}

// ParseShape is Parse that also reports the detected shape.
func ParseShape(raw []byte) ([]games.Game, Shape, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ShapeUnknown, ErrInvalidJSON
	}
	root := gjson.ParseBytes(raw)
	shape := detect(root)
	switch shape {
	case ShapePro:
		return parsePro(root), shape, nil
	case ShapeCollege:
		return parseCollege(root), shape, nil
	default:
		return []games.Game{}, shape, nil
	}
}

// ParseFile reads file through r and parses it.
func ParseFile(r Reader, file string) ([]games.Game, error) {
	raw, err := r.Read(file)
	if err != nil {
		return nil, err
	}
	out, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return out, nil
}

func detect(root gjson.Result) Shape {
	if !root.IsObject() {
		return ShapeUnknown
	}
	if root.Get("sports").IsArray() {
		return ShapePro
	}
	if root.Get("events").IsArray() {
		return ShapeCollege
	}
	return ShapeUnknown
}

func parsePro(root gjson.Result) []games.Game {
	out := []games.Game{}
	root.Get("sports").ForEach(func(_, sport gjson.Result) bool {
		sport.Get("leagues").ForEach(func(_, league gjson.Result) bool {
			league.Get("events").ForEach(func(_, ev gjson.Result) bool {
				out = append(out, proGame(ev))
				return true
			})
			return true
		})
		return true
	})
	return out
}

func proGame(ev gjson.Result) games.Game {
	g := games.Game{
		ID:        raw(ev.Get("id")),
		ShortName: raw(ev.Get("shortName")),
		WeekText:  raw(ev.Get("weekText")),
		Status:    raw(ev.Get("status")),
		Summary:   raw(ev.Get("summary")),
		Period:    raw(ev.Get("period")),
		Clock:     raw(ev.Get("clock")),
		Teams:     []games.TeamSide{},
	}
	ev.Get("competitors").ForEach(func(_, c gjson.Result) bool {
		g.Teams = append(g.Teams, games.TeamSide{
			HomeAway:       raw(c.Get("homeAway")),
			Abbreviation:   raw(c.Get("abbreviation")),
			Color:          raw(c.Get("color")),
			AlternateColor: raw(c.Get("alternateColor")),
			Score:          raw(c.Get("score")),
			Record:         record(c),
			Logo:           raw(c.Get("logo")),
		})
		return true
	})
	return g
}

func parseCollege(root gjson.Result) []games.Game {
	out := []games.Game{}
	root.Get("events").ForEach(func(_, ev gjson.Result) bool {
		out = append(out, collegeGame(ev))
		return true
	})
	return out
}

func collegeGame(ev gjson.Result) games.Game {
	comp := ev.Get("competitions.0")
	g := games.Game{
		ID:        raw(ev.Get("id")),
		UID:       raw(ev.Get("uid")),
		Date:      raw(ev.Get("date")),
		Name:      raw(ev.Get("name")),
		ShortName: raw(ev.Get("shortName")),
		WeekText:  raw(ev.Get("week.number")),
		Status:    raw(ev.Get("status.type.shortDetail")),
		Summary:   raw(ev.Get("summary")),
		Period:    raw(comp.Get("status.period")),
		Clock:     raw(comp.Get("status.clock")),
		Teams:     []games.TeamSide{},
	}
	comp.Get("competitors").ForEach(func(_, c gjson.Result) bool {
		team := c.Get("team")
		g.Teams = append(g.Teams, games.TeamSide{
			HomeAway:         raw(c.Get("homeAway")),
			Abbreviation:     raw(team.Get("abbreviation")),
			Color:            raw(team.Get("color")),
			AlternateColor:   raw(team.Get("alternateColor")),
			Score:            raw(c.Get("score")),
			Record:           record(c),
			Logo:             raw(team.Get("logo")),
			DisplayName:      raw(team.Get("displayName")),
			ShortDisplayName: raw(team.Get("shortDisplayName")),
		})
		return true
	})
	return g
}

// record prefers a plain record string, then the overall entry of a records list.
func record(c gjson.Result) string {
	if r := c.Get("record"); r.Type == gjson.String {
		return r.String()
	} else if r.IsArray() {
		if s, ok := overallSummary(r); ok {
			return s
		}
	}
	if s, ok := overallSummary(c.Get("records")); ok {
		return s
	}
	return ""
}

func overallSummary(list gjson.Result) (string, bool) {
	var (
		summary string
		found   bool
	)
	list.ForEach(func(_, rec gjson.Result) bool {
		if isOverall(rec.Get("type").String()) || isOverall(rec.Get("name").String()) {
			summary = rec.Get("summary").String()
			found = true
			return false
		}
		return true
	})
	return summary, found
}

func isOverall(s string) bool {
	return strings.EqualFold(s, "total") || strings.EqualFold(s, "overall")
}

func raw(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}
