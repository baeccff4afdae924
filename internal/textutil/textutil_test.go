package textutil

import "testing"

func TestContainsJapanese(t *testing.T) {
	tests := map[string]bool{
		"なんとまぁ":     true,
		"カタカナ":      true,
		"漢字":        true,
		"hello":     false,
		"ＪＯＫＥＲ":     false,
		"":          false,
		"mixed ひら": true,
	}
	for in, want := range tests {
		if got := ContainsJapanese(in); got != want {
			t.Errorf("ContainsJapanese(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("寂しい背中だい", 3); got != "寂しい..." {
		t.Fatalf("Truncate = %q, want %q", got, "寂しい...")
	}
	if got := Truncate("短い", 5); got != "短い" {
		t.Fatalf("Truncate = %q, want %q", got, "短い")
	}
}

func TestTrimQuotes(t *testing.T) {
	tests := map[string]string{
		`"你好"`: "你好",
		`"`:    `"`,
		`""`:   "",
		`a"b"`: `a"b"`,
		`"a`:   `"a`,
	}
	for in, want := range tests {
		if got := TrimQuotes(in); got != want {
			t.Errorf("TrimQuotes(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHashIsStable(t *testing.T) {
	if Hash("a") != Hash("a") || Hash("a") == Hash("b") {
		t.Fatal("Hash is not a stable digest")
	}
	if len(Hash("")) != 64 {
		t.Fatalf("len(Hash) = %d, want 64", len(Hash("")))
	}
}
