package merge

import (
	"fmt"
	"sort"
	"strings"

	po "github.com/minios-linux/pomerge/pofile"
)

// ConflictRecord captures one field-level three-way disagreement:
// the rendered base, local and remote values of the field. Records
// live only for the duration of one merge invocation; the annotator
// folds them into the output entry and the merger folds them into
// the conflict count.
type ConflictRecord struct {
	// Field names the disagreeing field ("msgstr", "msgid_plural",
	// "entry" for removal-vs-modification).
	Field string
	// Base, Local and Remote are single-line rendered field values.
	Base   string
	Local  string
	Remote string
}

// absentValue marks a side where the entry or field does not exist.
const absentValue = "(absent)"

// removedValue marks a branch that deleted the entry.
const removedValue = "(removed)"

// Annotate folds unresolved conflict records into an entry while
// keeping it a structurally valid PO entry: the entry is marked fuzzy
// (the format-native "needs review" signal) and one comment block per
// record is appended to the translator comments. The layout is fixed
// and must stay stable across versions:
//
//	# #-#-#-#-# pomerge conflict: msgstr #-#-#-#-#
//	# base:   "..."
//	# local:  "..."
//	# remote: "..."
//
// Values are PO-quoted onto a single line each, so any compliant PO
// reader can open the file and all three sides stay recoverable.
func Annotate(e *po.Entry, records []ConflictRecord) {
	for _, r := range records {
		e.TranslatorComments = append(e.TranslatorComments,
			fmt.Sprintf("#-#-#-#-# pomerge conflict: %s #-#-#-#-#", r.Field),
			"base:   "+r.Base,
			"local:  "+r.Local,
			"remote: "+r.Remote,
		)
	}
	e.SetFuzzy(true)
}

// renderTranslation renders an entry's translation unit as a single
// line for conflict comments. Plural forms are listed by index;
// a fuzzy translation is suffixed so the fuzzy-vs-reviewed
// distinction survives the round trip through the comment.
func renderTranslation(e *po.Entry) string {
	if e == nil {
		return absentValue
	}

	var s string
	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		parts := make([]string, 0, len(indices))
		for _, idx := range indices {
			parts = append(parts, fmt.Sprintf("[%d] %s", idx, po.Quote(e.MsgStrPlural[idx])))
		}
		s = strings.Join(parts, " ")
	} else {
		s = po.Quote(e.MsgStr)
	}

	if e.IsFuzzy() {
		s += " (fuzzy)"
	}
	return s
}
