package msgscript

import "strings"

// isTabDialogue reports whether l extends a [tab] continuation run.
func isTabDialogue(l Line) bool {
	d, ok := l.(*Dialogue)
	return ok && strings.Contains(d.Format, tabMarker)
}

// MergeTabRuns collapses every maximal run of consecutive [tab] dialogue
// lines into one dialogue line, so a soft-wrapped utterance is translated as
// a unit. Runs of one line go through the same path. Other lines pass through
// unchanged.
func MergeTabRuns(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for i := 0; i < len(lines); {
		if !isTabDialogue(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && isTabDialogue(lines[j]) {
			j++
		}
		out = append(out, mergeRun(lines[i:j]))
		i = j
	}
	return out
}

// mergeRun joins the per-line templates of a run with line breaks and
// renumbers their placeholders across the whole run. Markers are never
// rewritten, so a segment whose text also appears inside a marker cannot
// displace it.
func mergeRun(run []Line) *Dialogue {
	total := 0
	for _, l := range run {
		total += len(l.(*Dialogue).Segments)
	}

	segments := make([]string, 0, total)
	formats := make([]string, 0, len(run))
	for _, l := range run {
		d := l.(*Dialogue)
		offset := len(segments)
		n := 0
		formats = append(formats, placeholderPattern.ReplaceAllStringFunc(d.Format, func(string) string {
			idx := offset + n
			n++
			if total == 1 {
				return textPlaceholder
			}
			return indexedPlaceholder(idx)
		}))
		segments = append(segments, d.Segments...)
	}

	return &Dialogue{
		Segments: segments,
		Format:   strings.Join(formats, "\n"),
		Single:   total <= 1,
	}
}
