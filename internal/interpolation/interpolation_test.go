package interpolation

import (
	"reflect"
	"testing"
)

func TestProtect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		safe string
		orig []string
	}{
		{"none", "こんにちは", "こんにちは", nil},
		{"codename", "ＪＯＫＥＲ様だ", "{{var_1}}様だ", []string{"ＪＯＫＥＲ"}},
		{"single letter kept", "Ａ地点", "Ａ地点", nil},
		{"printf", "%d円と%s", "{{var_1}}円と{{var_2}}", []string{"%d", "%s"}},
		{"escaped percent", "100%%", "100{{var_1}}", []string{"%%"}},
		{"indexed", "{0}が{1}を", "{{var_1}}が{{var_2}}を", []string{"{0}", "{1}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, mappings := Protect(tt.in)
			if safe != tt.safe {
				t.Fatalf("Protect(%q) = %q, want %q", tt.in, safe, tt.safe)
			}
			var orig []string
			for _, m := range mappings {
				orig = append(orig, m.Original)
			}
			if !reflect.DeepEqual(orig, tt.orig) {
				t.Fatalf("originals = %v, want %v", orig, tt.orig)
			}
			if got := Restore(safe, mappings); got != tt.in {
				t.Fatalf("Restore = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestRestoreAfterReorder(t *testing.T) {
	_, mappings := Protect("%sの%d")
	got := Restore("{{var_2}}个{{var_1}}", mappings)
	if got != "%d个%s" {
		t.Fatalf("Restore = %q", got)
	}
}

func TestMissing(t *testing.T) {
	_, mappings := Protect("ＳＥＢＥＣと%d")
	got := Missing("只有{{var_2}}", mappings)
	if !reflect.DeepEqual(got, []string{"{{var_1}}"}) {
		t.Fatalf("Missing = %v", got)
	}
}
