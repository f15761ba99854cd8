package feeds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const yamlFeeds = `
feeds:
  - url: https://site.api.example.com/football/nfl/scoreboard
    file: nfl.json
    route: NFL
  - url: https://site.api.example.com/football/college-football/scoreboard
    file: ncaaf.json
    route: /ncaaf/
`

const jsonFeeds = `[
  {"url": "https://site.api.example.com/nfl", "file": "nfl.json", "route": "nfl"}
]`

func TestParseYAMLObject(t *testing.T) {
	list, err := Parse([]byte(yamlFeeds))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(list))
	}
	if list[0].Route != "nfl" || list[1].Route != "ncaaf" {
		t.Fatalf("expected normalized routes, got %q and %q", list[0].Route, list[1].Route)
	}
	if got := Files(list); got[0] != "nfl.json" || got[1] != "ncaaf.json" {
		t.Fatalf("expected file order preserved, got %v", got)
	}
}

func TestParseJSONList(t *testing.T) {
	list, err := Parse([]byte(jsonFeeds))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(list) != 1 || list[0].File != "nfl.json" {
		t.Fatalf("unexpected feeds %+v", list)
	}
}

func TestParseEmptyListIsValid(t *testing.T) {
	list, err := Parse([]byte("feeds: []"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}

func TestParseRejectsBadContent(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"scalar":          "just a string",
		"malformed":       "feeds: [",
		"relative_url":    `[{"url":"/nfl","file":"nfl.json","route":"nfl"}]`,
		"ftp_url":         `[{"url":"ftp://x/nfl","file":"nfl.json","route":"nfl"}]`,
		"path_in_file":    `[{"url":"https://x/nfl","file":"../nfl.json","route":"nfl"}]`,
		"dot_file":        `[{"url":"https://x/nfl","file":"..","route":"nfl"}]`,
		"manifest_file":   `[{"url":"https://x/nfl","file":"manifest.json","route":"nfl"}]`,
		"missing_route":   `[{"url":"https://x/nfl","file":"nfl.json"}]`,
		"duplicate_file":  `[{"url":"https://x/a","file":"a.json","route":"a"},{"url":"https://x/b","file":"a.json","route":"b"}]`,
		"shared_stem":     `[{"url":"https://x/a","file":"nfl.json","route":"a"},{"url":"https://x/b","file":"nfl.xml","route":"b"}]`,
		"duplicate_route": `[{"url":"https://x/a","file":"a.json","route":"A"},{"url":"https://x/b","file":"b.json","route":"a"}]`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadReturnsHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.json")
	if err := os.WriteFile(path, []byte(jsonFeeds), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	list, hash, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 feed, got %d", len(list))
	}
	if hash != Hash([]byte(jsonFeeds)) {
		t.Fatalf("expected hash of file content")
	}
	if Hash([]byte(jsonFeeds)) == Hash([]byte(yamlFeeds)) {
		t.Fatalf("expected distinct hashes for distinct content")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestByRoute(t *testing.T) {
	list, _ := Parse([]byte(yamlFeeds))

	feed, ok := ByRoute(list, "/NCAAF")
	if !ok || feed.File != "ncaaf.json" {
		t.Fatalf("expected ncaaf feed, got %+v ok=%v", feed, ok)
	}
	if _, ok := ByRoute(list, "nhl"); ok {
		t.Fatal("expected no match for unknown route")
	}
}
