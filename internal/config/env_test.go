package config

import "testing"

func TestBoolEnvOrDefault(t *testing.T) {
	t.Setenv("BOOL_TEST", "")
	if got := boolEnvOrDefault("BOOL_TEST", true); !got {
		t.Fatalf("expected default true when unset")
	}

	cases := []struct {
		val      string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"no", false},
		{"maybe", true}, // falls back to default on unknown
	}

	for _, tc := range cases {
		t.Setenv("BOOL_TEST", tc.val)
		if got := boolEnvOrDefault("BOOL_TEST", true); got != tc.expected {
			t.Fatalf("expected %v for %s, got %v", tc.expected, tc.val, got)
		}
	}
}

func TestRangeEnvOrDefault(t *testing.T) {
	cases := []struct {
		val      string
		expected int
	}{
		{"", 5},
		{"0", 0},
		{"23", 23},
		{"24", 5},
		{"-3", 5},
		{"abc", 5},
	}

	for _, tc := range cases {
		t.Setenv("RANGE_TEST", tc.val)
		if got := rangeEnvOrDefault("RANGE_TEST", 5, 0, 23); got != tc.expected {
			t.Fatalf("expected %d for %q, got %d", tc.expected, tc.val, got)
		}
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	got := splitList(" a ,,b")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}
