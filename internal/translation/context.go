package translation

import (
	"strings"

	"msg-translator/internal/textutil"
)

// ContextLine is one line of a file as shown to the model.
type ContextLine struct {
	Speaker string
	Text    string
}

// String formats the line as "speaker：text" with a full-width colon.
func (l ContextLine) String() string {
	if l.Speaker == "" {
		return l.Text
	}
	return l.Speaker + "：" + l.Text
}

// Window collects context around lines[idx]. Lines are taken alternately
// from both sides, always from the side with fewer characters so far, with
// at most maxItems per side and maxChars in total. Lines with empty text
// are skipped. before is returned in reading order.
func Window(lines []ContextLine, idx, maxChars, maxItems int) (before, after []string) {
	if idx < 0 || idx >= len(lines) {
		return nil, nil
	}

	next := [2]int{idx - 1, idx + 1} // 0: before, 1: after
	chars := [2]int{}
	total := 0
	has := func(side int) bool {
		if side == 0 {
			return next[0] >= 0
		}
		return next[1] < len(lines)
	}
	count := func(side int) int {
		if side == 0 {
			return len(before)
		}
		return len(after)
	}

	for total < maxChars {
		var side int
		switch {
		case has(0) && has(1):
			if chars[0] > chars[1] {
				side = 1
			}
		case has(0):
		case has(1):
			side = 1
		default:
			return reversed(before), after
		}

		if count(side) >= maxItems {
			other := 1 - side
			if !has(other) || count(other) >= maxItems {
				break
			}
			side = other
		}

		i := next[side]
		if side == 0 {
			next[0]--
		} else {
			next[1]++
		}

		line := lines[i]
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}
		s := line.String()
		n := textutil.RuneLen(s)
		if total+n > maxChars {
			break
		}
		if side == 0 {
			before = append(before, s)
		} else {
			after = append(after, s)
		}
		chars[side] += n
		total += n
	}
	return reversed(before), after
}

func reversed(s []string) []string {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
