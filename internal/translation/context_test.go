package translation

import (
	"reflect"
	"testing"
)

func lines(texts ...string) []ContextLine {
	out := make([]ContextLine, len(texts))
	for i, s := range texts {
		out[i] = ContextLine{Text: s}
	}
	return out
}

func TestWindowAlternates(t *testing.T) {
	ls := lines("a1", "b1", "c1", "X", "d1", "e1")

	before, after := Window(ls, 3, 1000, 5)
	if !reflect.DeepEqual(before, []string{"a1", "b1", "c1"}) {
		t.Fatalf("before = %v", before)
	}
	if !reflect.DeepEqual(after, []string{"d1", "e1"}) {
		t.Fatalf("after = %v", after)
	}
}

func TestWindowItemLimit(t *testing.T) {
	ls := lines("1", "2", "3", "X", "4", "5", "6")

	before, after := Window(ls, 3, 1000, 2)
	if !reflect.DeepEqual(before, []string{"2", "3"}) || !reflect.DeepEqual(after, []string{"4", "5"}) {
		t.Fatalf("Window = %v, %v", before, after)
	}
}

func TestWindowCharBudget(t *testing.T) {
	ls := lines("aaaa", "bb", "X", "cc", "dddd")

	// bb (2) then cc (2) then aaaa would exceed 6.
	before, after := Window(ls, 2, 6, 5)
	if !reflect.DeepEqual(before, []string{"bb"}) || !reflect.DeepEqual(after, []string{"cc"}) {
		t.Fatalf("Window = %v, %v", before, after)
	}

	if before, after := Window(ls, 2, 0, 5); before != nil || after != nil {
		t.Fatalf("zero budget gave %v, %v", before, after)
	}
}

func TestWindowBalancesByChars(t *testing.T) {
	ls := lines("p", "longer line", "X", "q", "r")

	// The long line makes the before side heavier, so both after lines
	// are taken before the next before line.
	before, after := Window(ls, 2, 1000, 5)
	if !reflect.DeepEqual(before, []string{"p", "longer line"}) || !reflect.DeepEqual(after, []string{"q", "r"}) {
		t.Fatalf("Window = %v, %v", before, after)
	}
}

func TestWindowSkipsEmptyAndFormatsSpeaker(t *testing.T) {
	ls := []ContextLine{
		{Speaker: "舞耶", Text: "こんにちは"},
		{Text: "   "},
		{Text: "X"},
		{Speaker: "克哉", Text: " 元気か "},
	}

	before, after := Window(ls, 2, 1000, 5)
	if !reflect.DeepEqual(before, []string{"舞耶：こんにちは"}) {
		t.Fatalf("before = %v", before)
	}
	if !reflect.DeepEqual(after, []string{"克哉：元気か"}) {
		t.Fatalf("after = %v", after)
	}
}

func TestWindowOutOfRange(t *testing.T) {
	if before, after := Window(lines("a"), 3, 100, 5); before != nil || after != nil {
		t.Fatalf("Window = %v, %v", before, after)
	}
}
