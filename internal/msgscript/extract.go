package msgscript

import "strconv"

// SpeakerID returns the item id of a message's speaker line.
func SpeakerID(msg string) string {
	return msg + "_speaker"
}

// DialogueID returns the item id of the n-th numbered dialogue line.
func DialogueID(msg string, n int) string {
	return msg + "_dialogue_" + strconv.Itoa(n)
}

// SegmentID returns the item id of segment s of the n-th numbered dialogue line.
func SegmentID(msg string, n, s int) string {
	return DialogueID(msg, n) + "_seg_" + strconv.Itoa(s)
}

// dialogueNumbers assigns each line its dialogue number: a dialogue line
// takes the next number when it yields at least one item, every other line
// gets -1. Extraction, rebuild and Apply all number lines through here, which
// keeps the ids they use identical.
func dialogueNumbers(lines []Line) []int {
	nums := make([]int, len(lines))
	next := 0
	for i, l := range lines {
		nums[i] = -1
		if d, ok := l.(*Dialogue); ok && d.HasText() {
			nums[i] = next
			next++
		}
	}
	return nums
}

// Items returns the translatable items of one message block in line order.
func Items(msg string, block *MessageBlock) []TranslatableItem {
	if block == nil {
		return nil
	}
	var items []TranslatableItem
	nums := dialogueNumbers(block.Lines)
	for i, l := range block.Lines {
		switch v := l.(type) {
		case *Speaker:
			items = append(items, TranslatableItem{ID: SpeakerID(msg), Text: v.Text})
		case *Dialogue:
			n := nums[i]
			if n < 0 {
				continue
			}
			if v.Single {
				items = append(items, TranslatableItem{ID: DialogueID(msg, n), Text: v.Text()})
				continue
			}
			for s, seg := range v.Segments {
				if seg == "" {
					continue
				}
				items = append(items, TranslatableItem{ID: SegmentID(msg, n, s), Text: seg})
			}
		}
	}
	return items
}

// ExtractTexts returns the translatable items of every message in document
// order. Messages without items are omitted.
func ExtractTexts(doc *Document) []MessageTexts {
	var out []MessageTexts
	for _, name := range doc.Order {
		items := Items(name, doc.Messages[name])
		if len(items) == 0 {
			continue
		}
		out = append(out, MessageTexts{Message: name, Items: items})
	}
	return out
}

// TranslationsFrom flattens per-message item lists into a Translations map.
func TranslationsFrom(texts []MessageTexts) Translations {
	tr := make(Translations)
	for _, mt := range texts {
		for _, it := range mt.Items {
			tr[it.ID] = it.Text
		}
	}
	return tr
}
