package merge

import (
	po "github.com/minios-linux/pomerge/pofile"
)

// Change classifies how one branch treats an entry relative to the
// common ancestor. It is recomputed on every merge run, never stored.
type Change int

const (
	// ChangeUnchanged means the branch carries the base entry as-is.
	ChangeUnchanged Change = iota
	// ChangeModified means the branch altered at least one field.
	ChangeModified
	// ChangeRemoved means the branch deleted the entry.
	ChangeRemoved
	// ChangeAbsentInBase means the entry did not exist in the ancestor.
	ChangeAbsentInBase
)

// Match holds the three per-branch views of one identity key.
// A nil entry means the key is absent in that catalog.
type Match struct {
	Key    po.Key
	Base   *po.Entry
	Local  *po.Entry
	Remote *po.Entry
}

// LocalChange classifies the local branch for this key.
func (m *Match) LocalChange() Change {
	return classify(m.Base, m.Local)
}

// RemoteChange classifies the remote branch for this key.
func (m *Match) RemoteChange() Change {
	return classify(m.Base, m.Remote)
}

func classify(base, branch *po.Entry) Change {
	switch {
	case base == nil:
		return ChangeAbsentInBase
	case branch == nil:
		return ChangeRemoved
	case entriesEqual(base, branch):
		return ChangeUnchanged
	default:
		return ChangeModified
	}
}

// MatchEntries aligns the three catalogs by identity key and returns
// the union of all keys in a deterministic, human-reviewable order:
// keys known to base in base order, then local-only additions in
// local order, then remote-only additions in remote order, then keys
// added in both branches in local order.
//
// Each catalog is indexed first-occurrence-wins, so duplicate keys
// within one catalog never merge together.
func MatchEntries(base, local, remote *po.File) []Match {
	baseIdx := base.Index()
	localIdx := local.Index()
	remoteIdx := remote.Index()

	var matches []Match
	seen := make(map[po.Key]bool)

	add := func(key po.Key) {
		if seen[key] {
			return
		}
		seen[key] = true
		matches = append(matches, Match{
			Key:    key,
			Base:   baseIdx[key],
			Local:  localIdx[key],
			Remote: remoteIdx[key],
		})
	}

	for _, e := range base.Entries {
		add(e.Key())
	}
	for _, e := range local.Entries {
		key := e.Key()
		if baseIdx[key] == nil && remoteIdx[key] == nil {
			add(key)
		}
	}
	for _, e := range remote.Entries {
		key := e.Key()
		if baseIdx[key] == nil && localIdx[key] == nil {
			add(key)
		}
	}
	for _, e := range local.Entries {
		key := e.Key()
		if baseIdx[key] == nil {
			add(key)
		}
	}

	return matches
}

// entriesEqual reports whether two entries are identical across every
// mergeable field. Used to distinguish "unchanged" from "modified".
func entriesEqual(a, b *po.Entry) bool {
	if !a.EqualTranslation(b) {
		return false
	}
	if a.MsgIDPlural != b.MsgIDPlural || a.Obsolete != b.Obsolete {
		return false
	}
	if a.PreviousMsgID != b.PreviousMsgID {
		return false
	}
	return equalStrings(a.Flags, b.Flags) &&
		equalStrings(a.TranslatorComments, b.TranslatorComments) &&
		equalStrings(a.ExtractedComments, b.ExtractedComments) &&
		equalStrings(a.References, b.References)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
