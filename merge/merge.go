// Package merge implements three-way merging of PO translation
// catalogs: a common ancestor plus two divergent versions produce one
// merged catalog. Non-overlapping changes resolve automatically;
// overlapping changes are kept as format-native conflicts (fuzzy flag
// plus structured comments), so the output is always a valid PO file.
package merge

import (
	"strings"
	"time"

	po "github.com/minios-linux/pomerge/pofile"
)

// Result aggregates the outcome of one merge invocation.
type Result struct {
	// Conflicts is the number of unresolved disagreements embedded in
	// the output catalog (entry fields plus header fields).
	Conflicts int
	// Keys lists the identity keys of entries that carry a conflict
	// annotation, in output order.
	Keys []po.Key
}

// Merge performs a three-way merge of base, local and remote catalogs
// and returns a newly built output catalog. The inputs are never
// mutated, so concurrent merges over different catalog triples are
// safe without locking.
//
// Conflicts never fail the merge: they are annotated into the output
// and counted in the Result. Output order is header, active entries
// in matcher order, obsolete entries last.
func Merge(base, local, remote *po.File) (*po.File, *Result) {
	out := po.NewFile()
	res := &Result{}

	out.Header = mergeHeader(base, local, remote, res)

	var active, obsolete []*po.Entry
	for _, m := range MatchEntries(base, local, remote) {
		entry, records := mergeEntry(m)
		if entry == nil {
			continue
		}
		if len(records) > 0 {
			Annotate(entry, records)
			res.Conflicts += len(records)
			res.Keys = append(res.Keys, m.Key)
		}
		if entry.Obsolete {
			obsolete = append(obsolete, entry)
		} else {
			active = append(active, entry)
		}
	}

	// Later duplicates of a key within the local catalog were excluded
	// from matching (first occurrence is authoritative); they are
	// carried over as obsolete entries rather than silently merged.
	firstSeen := make(map[po.Key]bool)
	for _, e := range local.Entries {
		key := e.Key()
		if !firstSeen[key] {
			firstSeen[key] = true
			continue
		}
		dup := e.Clone()
		dup.Obsolete = true
		dup.References = nil
		obsolete = append(obsolete, dup)
	}

	out.Entries = append(active, obsolete...)
	return out, res
}

// mergeEntry decides presence and content for one matched key based
// on how each branch changed it relative to the ancestor. A nil entry
// means the key is dropped from the output.
func mergeEntry(m Match) (*po.Entry, []ConflictRecord) {
	lc, rc := m.LocalChange(), m.RemoteChange()

	// Addition: the key did not exist in the ancestor. The branches
	// classify against the same base, so lc and rc agree here.
	if lc == ChangeAbsentInBase {
		if m.Remote == nil {
			return m.Local.Clone(), nil
		}
		if m.Local == nil {
			return m.Remote.Clone(), nil
		}
		// Added independently in both branches: merge against a
		// synthetic empty ancestor instead of failing.
		return mergeTriple(emptyEntry(m.Local), m.Local, m.Remote)
	}

	switch {
	case lc == ChangeRemoved && rc == ChangeRemoved:
		// Removed in both branches: routine deletion.
		return nil, nil
	case lc == ChangeRemoved && rc == ChangeUnchanged,
		rc == ChangeRemoved && lc == ChangeUnchanged:
		// The surviving branch left it untouched: the removal wins.
		return nil, nil
	case lc == ChangeRemoved || rc == ChangeRemoved:
		// Removal versus modification: dropping could lose work, so
		// the modified entry is retained with a conflict record.
		rec := ConflictRecord{
			Field: "entry",
			Base:  renderTranslation(m.Base),
		}
		kept := m.Local
		if lc == ChangeRemoved {
			kept = m.Remote
			rec.Local = removedValue
			rec.Remote = renderTranslation(m.Remote)
		} else {
			rec.Local = renderTranslation(m.Local)
			rec.Remote = removedValue
		}
		return kept.Clone(), []ConflictRecord{rec}
	}

	return mergeTriple(m.Base, m.Local, m.Remote)
}

// mergeTriple merges an entry present in all three catalogs, field by
// field. Auxiliary metadata (comments, references, flags, obsolete
// marker) always resolves; the translation unit and msgid_plural can
// produce conflict records.
func mergeTriple(base, local, remote *po.Entry) (*po.Entry, []ConflictRecord) {
	out := emptyEntry(local)

	out.References = mergeStringSet(base.References, local.References, remote.References)
	out.Flags = mergeStringSet(dropFuzzy(base.Flags), dropFuzzy(local.Flags), dropFuzzy(remote.Flags))
	out.TranslatorComments = mergeComments(base.TranslatorComments, local.TranslatorComments, remote.TranslatorComments)
	out.ExtractedComments = mergeComments(base.ExtractedComments, local.ExtractedComments, remote.ExtractedComments)
	out.Obsolete = mergeBool(base.Obsolete, local.Obsolete, remote.Obsolete)

	var records []ConflictRecord

	if v, ok := mergeScalar(base.MsgIDPlural, local.MsgIDPlural, remote.MsgIDPlural); ok {
		out.MsgIDPlural = v
	} else {
		out.MsgIDPlural = local.MsgIDPlural
		records = append(records, ConflictRecord{
			Field:  "msgid_plural",
			Base:   po.Quote(base.MsgIDPlural),
			Local:  po.Quote(local.MsgIDPlural),
			Remote: po.Quote(remote.MsgIDPlural),
		})
	}

	if rec := mergeTranslation(out, base, local, remote); rec != nil {
		// Keep the file syntactically complete: local is the working
		// branch, its translation stands in until a human resolves.
		setTranslationFrom(out, local)
		records = append(records, *rec)
	}

	return out, records
}

// emptyEntry creates a bare entry sharing identity with the template.
func emptyEntry(template *po.Entry) *po.Entry {
	return &po.Entry{
		MsgCtxt:      template.MsgCtxt,
		MsgID:        template.MsgID,
		MsgStrPlural: make(map[int]string),
	}
}

// ---------------------------------------------------------------------------
// Header merge
// ---------------------------------------------------------------------------

// templateHeaders are maintained by the POT template rather than the
// translator; disagreements on them follow POT-Creation-Date instead
// of PO-Revision-Date.
var templateHeaders = map[string]bool{
	"Project-Id-Version":   true,
	"Report-Msgid-Bugs-To": true,
	"POT-Creation-Date":    true,
	"Language-Team":        true,
}

// mergeHeader merges the catalog metadata entry field by field. A
// true three-way disagreement on a header field does not make the
// whole file unusable, so it is resolved by preferring the side with
// the newer revision date; the losing value is recorded in a header
// comment and the disagreement still counts as a conflict.
func mergeHeader(base, local, remote *po.File, res *Result) *po.Entry {
	bh := headerOf(base)
	lh := headerOf(local)
	rh := headerOf(remote)

	out := lh.Clone()
	out.TranslatorComments = mergeComments(bh.TranslatorComments, lh.TranslatorComments, rh.TranslatorComments)

	bKeys, bVals := headerFields(bh.MsgStr)
	lKeys, lVals := headerFields(lh.MsgStr)
	rKeys, rVals := headerFields(rh.MsgStr)

	var sb strings.Builder
	for _, key := range mergeStringSet(bKeys, lKeys, rKeys) {
		value, ok := mergeScalar(bVals[key], lVals[key], rVals[key])
		if !ok {
			dateKey := "PO-Revision-Date"
			if templateHeaders[key] {
				dateKey = "POT-Creation-Date"
			}
			loser, loserSide := rVals[key], "remote"
			value = lVals[key]
			if !headerNewer(lVals[dateKey], rVals[dateKey]) {
				loser, loserSide = lVals[key], "local"
				value = rVals[key]
			}
			out.TranslatorComments = append(out.TranslatorComments,
				"(conflict) "+key+" from "+loserSide+": "+loser)
			res.Conflicts++
		}
		sb.WriteString(key + ": " + value + "\n")
	}
	out.MsgStr = sb.String()
	out.SetFuzzy(mergeBool(bh.IsFuzzy(), lh.IsFuzzy(), rh.IsFuzzy()))

	return out
}

func headerOf(f *po.File) *po.Entry {
	if f.Header != nil {
		return f.Header
	}
	return &po.Entry{MsgID: "", MsgStr: ""}
}

// headerFields parses the header msgstr into an ordered key list and
// a key→value map.
func headerFields(s string) ([]string, map[string]string) {
	var keys []string
	vals := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if _, dup := vals[key]; dup {
			continue
		}
		keys = append(keys, key)
		vals[key] = strings.TrimSpace(line[idx+1:])
	}
	return keys, vals
}

// headerDateLayouts cover the PO-Revision-Date formats in the wild.
var headerDateLayouts = []string{
	"2006-01-02 15:04-0700",
	"2006-01-02 15:04:05-0700",
}

// headerNewer reports whether the local date string is at least as
// new as the remote one. Unparseable dates sort oldest, so a branch
// with a valid date wins and two invalid dates prefer local.
func headerNewer(localDate, remoteDate string) bool {
	return !parseHeaderDate(localDate).Before(parseHeaderDate(remoteDate))
}

func parseHeaderDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range headerDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
