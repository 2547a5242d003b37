package merge

import (
	"bytes"
	"strings"
	"testing"

	po "github.com/minios-linux/pomerge/pofile"
)

func render(t *testing.T, f *po.File) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	return buf.String()
}

func reparse(t *testing.T, f *po.File) *po.File {
	t.Helper()
	round, err := po.Parse(strings.NewReader(render(t, f)))
	if err != nil {
		t.Fatalf("merged output is not a valid PO file: %v", err)
	}
	return round
}

func TestMergeIdentity(t *testing.T) {
	mk := func() *po.File {
		e := entry("hello", "privet")
		e.References = []string{"app.go:12"}
		e.ExtractedComments = []string{"greeting"}
		f := entry("draft", "chernovik")
		f.SetFuzzy(true)
		o := entry("old", "staroe")
		o.Obsolete = true
		return file(entry("a", "A"), e, f, o)
	}

	c := mk()
	merged, res := Merge(mk(), mk(), mk())

	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if len(res.Keys) != 0 {
		t.Fatalf("Keys = %v, want empty", res.Keys)
	}
	if got, want := render(t, merged), render(t, c); got != want {
		t.Fatalf("merge(C,C,C) != C:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestMergeInputsNotMutated(t *testing.T) {
	base := file(entry("greet", "hello"))
	local := file(entry("greet", "hello"))
	remote := file(entry("greet", "bonjour"))
	before := render(t, local)

	Merge(base, local, remote)

	if render(t, local) != before {
		t.Fatal("local input catalog was mutated by the merge")
	}
}

func TestOneSidedChangePropagates(t *testing.T) {
	base := file(entry("greet", "hello"))

	merged, res := Merge(base, file(entry("greet", "hello")), file(entry("greet", "bonjour")))
	if res.Conflicts != 0 {
		t.Fatalf("remote-only change: Conflicts = %d, want 0", res.Conflicts)
	}
	if got := merged.Entries[0].MsgStr; got != "bonjour" {
		t.Fatalf("remote-only change: MsgStr = %q, want bonjour", got)
	}

	merged, res = Merge(base, file(entry("greet", "hallo")), file(entry("greet", "hello")))
	if res.Conflicts != 0 {
		t.Fatalf("local-only change: Conflicts = %d, want 0", res.Conflicts)
	}
	if got := merged.Entries[0].MsgStr; got != "hallo" {
		t.Fatalf("local-only change: MsgStr = %q, want hallo", got)
	}
}

func TestConvergentEditsDoNotConflict(t *testing.T) {
	base := file(entry("greet", "hello"))
	merged, res := Merge(base, file(entry("greet", "salut")), file(entry("greet", "salut")))

	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if got := merged.Entries[0].MsgStr; got != "salut" {
		t.Fatalf("MsgStr = %q, want salut", got)
	}
}

func TestDivergentEditsConflict(t *testing.T) {
	base := file(entry("greet", "hello"))
	merged, res := Merge(base, file(entry("greet", "salut")), file(entry("greet", "bonjour")))

	if res.Conflicts != 1 {
		t.Fatalf("Conflicts = %d, want 1", res.Conflicts)
	}
	if len(res.Keys) != 1 || res.Keys[0] != key("greet") {
		t.Fatalf("Keys = %v, want [greet]", res.Keys)
	}

	e := merged.Entries[0]
	if e.MsgStr != "salut" {
		t.Fatalf("conflicted MsgStr = %q, want local candidate salut", e.MsgStr)
	}
	if !e.IsFuzzy() {
		t.Fatal("conflicted entry should carry the fuzzy flag")
	}

	comments := strings.Join(e.TranslatorComments, "\n")
	for _, want := range []string{
		"#-#-#-#-# pomerge conflict: msgstr #-#-#-#-#",
		`base:   "hello"`,
		`local:  "salut"`,
		`remote: "bonjour"`,
	} {
		if !strings.Contains(comments, want) {
			t.Fatalf("conflict comments missing %q:\n%s", want, comments)
		}
	}

	// The conflicted output must still be a valid PO file.
	round := reparse(t, merged)
	re := round.EntryByKey(key("greet"))
	if re == nil || !re.IsFuzzy() {
		t.Fatalf("round-tripped conflict entry lost its annotation: %#v", re)
	}
}

func TestAdditions(t *testing.T) {
	base := file()
	localAdd := entry("local-only", "L")
	localAdd.References = []string{"l.go:1"}

	merged, res := Merge(base, file(localAdd, entry("both", "same")), file(entry("both", "same")))
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if len(merged.Entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(merged.Entries))
	}
	if got := merged.Entries[0]; got.MsgStr != "L" || len(got.References) != 1 {
		t.Fatalf("local-only addition altered: %#v", got)
	}

	// Identical addition in both branches appears exactly once.
	count := 0
	for _, e := range merged.Entries {
		if e.MsgID == "both" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("both-added entry appears %d times, want 1", count)
	}
}

func TestDivergentAdditionConflicts(t *testing.T) {
	_, res := Merge(file(), file(entry("new", "version a")), file(entry("new", "version b")))
	if res.Conflicts != 1 {
		t.Fatalf("Conflicts = %d, want 1", res.Conflicts)
	}
	if len(res.Keys) != 1 || res.Keys[0] != key("new") {
		t.Fatalf("Keys = %v, want [new]", res.Keys)
	}
}

func TestRemovals(t *testing.T) {
	base := file(entry("stale", "old"), entry("keep", "kept"))

	// Untouched in local, removed in remote: routine removal.
	merged, res := Merge(base,
		file(entry("stale", "old"), entry("keep", "kept")),
		file(entry("keep", "kept")))
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if merged.EntryByKey(key("stale")) != nil {
		t.Fatal("entry removed in remote and untouched in local should be dropped")
	}

	// Removed in both: dropped without conflict.
	merged, res = Merge(base, file(entry("keep", "kept")), file(entry("keep", "kept")))
	if res.Conflicts != 0 || merged.EntryByKey(key("stale")) != nil {
		t.Fatalf("entry removed in both branches should be dropped, conflicts=%d", res.Conflicts)
	}
}

func TestRemovalVersusModificationConflicts(t *testing.T) {
	base := file(entry("contested", "old"))
	local := file()
	remote := file(entry("contested", "new"))

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 1 {
		t.Fatalf("Conflicts = %d, want 1", res.Conflicts)
	}

	e := merged.EntryByKey(key("contested"))
	if e == nil {
		t.Fatal("modified entry should be retained, not silently dropped")
	}
	if e.MsgStr != "new" {
		t.Fatalf("retained MsgStr = %q, want the modified version", e.MsgStr)
	}
	if !e.IsFuzzy() {
		t.Fatal("removal-vs-modification entry should be marked fuzzy")
	}
	comments := strings.Join(e.TranslatorComments, "\n")
	if !strings.Contains(comments, "pomerge conflict: entry") || !strings.Contains(comments, "local:  (removed)") {
		t.Fatalf("conflict comments should record the removal side:\n%s", comments)
	}
}

func TestObsoleteMergesAsFieldAndSortsLast(t *testing.T) {
	base := file(entry("a", "A"), entry("b", "B"))
	localA := entry("a", "A")
	localA.Obsolete = true
	local := file(localA, entry("b", "B"))
	remote := file(entry("a", "A"), entry("b", "B"))

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if len(merged.Entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(merged.Entries))
	}
	last := merged.Entries[1]
	if last.MsgID != "a" || !last.Obsolete {
		t.Fatalf("obsoleted entry should sort last: %#v", last)
	}
}

func TestLocalDuplicateCarriedOverAsObsolete(t *testing.T) {
	base := file(entry("dup", "first"))
	local := file(entry("dup", "first"), entry("dup", "stray"))
	remote := file(entry("dup", "first"))

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if len(merged.Entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(merged.Entries))
	}
	carry := merged.Entries[1]
	if carry.MsgStr != "stray" || !carry.Obsolete {
		t.Fatalf("later duplicate should be carried over obsolete: %#v", carry)
	}
}

func TestContextDistinguishesEntries(t *testing.T) {
	menu := &po.Entry{MsgCtxt: "menu", MsgID: "Open", MsgStr: "Öffnen"}
	verb := &po.Entry{MsgCtxt: "verb", MsgID: "Open", MsgStr: "Offen"}

	base := file(menu.Clone(), verb.Clone())
	localMenu := menu.Clone()
	localMenu.MsgStr = "Menü öffnen"
	local := file(localMenu, verb.Clone())
	remote := file(menu.Clone(), verb.Clone())

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if got := merged.EntryByKey(po.Key{Ctxt: "menu", ID: "Open"}); got == nil || got.MsgStr != "Menü öffnen" {
		t.Fatalf("menu context entry = %#v, want local change", got)
	}
	if got := merged.EntryByKey(po.Key{Ctxt: "verb", ID: "Open"}); got == nil || got.MsgStr != "Offen" {
		t.Fatalf("verb context entry = %#v, want untouched", got)
	}
}

func TestMergeStableAfterManualResolution(t *testing.T) {
	base := file(entry("greet", "hello"))
	local := file(entry("greet", "salut"))
	remote := file(entry("greet", "bonjour"))

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 1 {
		t.Fatalf("first merge Conflicts = %d, want 1", res.Conflicts)
	}

	// A human resolves the conflict: picks remote's text, clears fuzzy.
	resolved := reparse(t, merged)
	e := resolved.EntryByKey(key("greet"))
	e.MsgStr = "bonjour"
	e.SetFuzzy(false)

	again, res2 := Merge(base, resolved, remote)
	if res2.Conflicts != 0 {
		t.Fatalf("re-merge after resolution Conflicts = %d, want 0", res2.Conflicts)
	}
	if got := again.EntryByKey(key("greet")); got == nil || got.MsgStr != "bonjour" || got.IsFuzzy() {
		t.Fatalf("re-merge changed a resolved entry: %#v", got)
	}
}

func TestMergeHeaderNewerRevisionWins(t *testing.T) {
	mk := func(rev, translator string) *po.File {
		f := po.NewFile()
		f.Header.MsgStr = "Project-Id-Version: demo 1.0\n" +
			"PO-Revision-Date: " + rev + "\n" +
			"Last-Translator: " + translator + "\n"
		return f
	}

	base := mk("2024-01-01 10:00+0000", "Alice")
	local := mk("2024-02-01 10:00+0000", "Bob")
	remote := mk("2024-03-01 10:00+0000", "Carol")

	merged, res := Merge(base, local, remote)

	// PO-Revision-Date and Last-Translator each diverge.
	if res.Conflicts != 2 {
		t.Fatalf("Conflicts = %d, want 2", res.Conflicts)
	}
	if got := merged.HeaderField("Last-Translator"); got != "Carol" {
		t.Fatalf("Last-Translator = %q, want newer side Carol", got)
	}
	comments := strings.Join(merged.Header.TranslatorComments, "\n")
	if !strings.Contains(comments, "(conflict) Last-Translator from local: Bob") {
		t.Fatalf("header comment should record the losing value:\n%s", comments)
	}
	if len(res.Keys) != 0 {
		t.Fatalf("header conflicts should not appear in Keys, got %v", res.Keys)
	}
}

func TestMergeHeaderFieldAddedOneSide(t *testing.T) {
	base := file()
	local := file()
	remote := file()
	remote.SetHeaderField("Language", "ru")

	merged, res := Merge(base, local, remote)
	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if got := merged.HeaderField("Language"); got != "ru" {
		t.Fatalf("Language = %q, want ru", got)
	}
}

func TestMergeHeaderKeepsEmptyField(t *testing.T) {
	mk := func() *po.File {
		f := po.NewFile()
		f.Header.MsgStr = "Project-Id-Version: demo 1.0\n" +
			"Report-Msgid-Bugs-To: \n" +
			"PO-Revision-Date: 2024-01-01 10:00+0000\n"
		return f
	}

	c := mk()
	merged, res := Merge(mk(), mk(), mk())

	if res.Conflicts != 0 {
		t.Fatalf("Conflicts = %d, want 0", res.Conflicts)
	}
	if !strings.Contains(merged.Header.MsgStr, "Report-Msgid-Bugs-To: \n") {
		t.Fatalf("empty-valued header field dropped:\n%s", merged.Header.MsgStr)
	}
	if got, want := render(t, merged), render(t, c); got != want {
		t.Fatalf("merge(C,C,C) != C:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}
