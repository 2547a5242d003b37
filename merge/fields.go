package merge

import (
	po "github.com/minios-linux/pomerge/pofile"
)

// mergeScalar applies the standard three-way rule to a scalar field.
// The second return value is false on a true three-way disagreement;
// no value is chosen automatically in that case.
func mergeScalar(base, local, remote string) (string, bool) {
	switch {
	case local == remote:
		return local, true
	case base == local:
		return remote, true
	case base == remote:
		return local, true
	default:
		return "", false
	}
}

// mergeBool merges a boolean property. Three pairwise-distinct values
// cannot exist for a boolean, so this always resolves.
func mergeBool(base, local, remote bool) bool {
	if base == local {
		return remote
	}
	return local
}

// mergeStringSet merges a list-valued field treating each element as
// present or absent per side: additions in either branch are kept,
// removals in either branch are applied. Element presence is boolean,
// so per-element merges always resolve. Output order: local order,
// then remote-only additions in remote order.
func mergeStringSet(base, local, remote []string) []string {
	inBase := toSet(base)
	inLocal := toSet(local)
	inRemote := toSet(remote)

	keep := func(v string) bool {
		switch {
		case inLocal[v] == inRemote[v]:
			return inLocal[v]
		case inBase[v] == inLocal[v]:
			return inRemote[v]
		default:
			return inLocal[v]
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, v := range local {
		if !seen[v] {
			seen[v] = true
			if keep(v) {
				out = append(out, v)
			}
		}
	}
	for _, v := range remote {
		if !seen[v] {
			seen[v] = true
			if keep(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// mergeComments merges free-form comment lines. Comments carry no
// correctness risk, so a two-sided divergent change concatenates
// (local lines first, then remote lines not already present) instead
// of conflicting.
func mergeComments(base, local, remote []string) []string {
	switch {
	case equalStrings(local, remote):
		return append([]string(nil), local...)
	case equalStrings(base, local):
		return append([]string(nil), remote...)
	case equalStrings(base, remote):
		return append([]string(nil), local...)
	}

	out := append([]string(nil), local...)
	seen := toSet(local)
	for _, line := range remote {
		if !seen[line] {
			out = append(out, line)
		}
	}
	return out
}

// mergeTranslation applies the three-way rule to the translation unit
// (msgstr, plural forms, fuzzy state and previous msgid travel
// together). On success the chosen side is copied into out and nil is
// returned; on a three-way disagreement a ConflictRecord is returned
// and out is left untouched for the annotator to fill.
func mergeTranslation(out, base, local, remote *po.Entry) *ConflictRecord {
	switch {
	case local.EqualTranslation(remote):
		setTranslationFrom(out, local)
	case base.EqualTranslation(local):
		setTranslationFrom(out, remote)
	case base.EqualTranslation(remote):
		setTranslationFrom(out, local)
	default:
		return &ConflictRecord{
			Field:  "msgstr",
			Base:   renderTranslation(base),
			Local:  renderTranslation(local),
			Remote: renderTranslation(remote),
		}
	}
	return nil
}

// setTranslationFrom copies the translation unit of src into out.
func setTranslationFrom(out, src *po.Entry) {
	out.MsgStr = src.MsgStr
	out.MsgStrPlural = make(map[int]string, len(src.MsgStrPlural))
	for i, v := range src.MsgStrPlural {
		out.MsgStrPlural[i] = v
	}
	out.PreviousMsgID = src.PreviousMsgID
	out.SetFuzzy(src.IsFuzzy())
}

// dropFuzzy returns the flag list without the fuzzy flag; fuzzy is
// merged as part of the translation unit, not the flag set.
func dropFuzzy(flags []string) []string {
	var out []string
	for _, f := range flags {
		if f != "fuzzy" {
			out = append(out, f)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
