// Package pofile implements reading and writing of PO/POT files
// following the GNU gettext format specification, plus the entry
// model used by the three-way merge engine.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry represents a single translatable message in a PO file.
type Entry struct {
	// TranslatorComments are lines starting with "# " (translator comments).
	TranslatorComments []string
	// ExtractedComments are lines starting with "#." (extracted/automatic comments).
	ExtractedComments []string
	// References are source code locations, lines starting with "#:".
	References []string
	// Flags are format flags, lines starting with "#,".
	Flags []string
	// PreviousMsgID stores the previous msgid for fuzzy entries, lines starting with "#|".
	PreviousMsgID string

	// MsgCtxt is the message context (msgctxt).
	MsgCtxt string
	// MsgID is the untranslated string.
	MsgID string
	// MsgIDPlural is the untranslated plural string.
	MsgIDPlural string
	// MsgStr is the translated string (singular or the only form).
	MsgStr string
	// MsgStrPlural maps plural form index to translated string.
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// Key is the identity of an entry across catalog versions:
// the (msgctxt, msgid) pair.
type Key struct {
	Ctxt string
	ID   string
}

// String renders the key for conflict reports and logs.
func (k Key) String() string {
	if k.Ctxt == "" {
		return fmt.Sprintf("%q", k.ID)
	}
	return fmt.Sprintf("%q (context %q)", k.ID, k.Ctxt)
}

// Key returns the entry's identity key.
func (e *Entry) Key() Key {
	return Key{Ctxt: e.MsgCtxt, ID: e.MsgID}
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag("fuzzy")
}

// SetFuzzy adds or removes the fuzzy flag.
func (e *Entry) SetFuzzy(fuzzy bool) {
	if fuzzy && !e.IsFuzzy() {
		e.Flags = append(e.Flags, "fuzzy")
	} else if !fuzzy {
		filtered := make([]string, 0, len(e.Flags))
		for _, f := range e.Flags {
			if f != "fuzzy" {
				filtered = append(filtered, f)
			}
		}
		e.Flags = filtered
	}
}

// HasFlag checks if a specific flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsBlank returns true if the entry carries no translation at all.
func (e *Entry) IsBlank() bool {
	if e.MsgIDPlural != "" {
		for _, v := range e.MsgStrPlural {
			if v != "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr == ""
}

// Clone returns a deep copy of the entry. Merged catalogs are built
// from clones so that input catalogs are never mutated.
func (e *Entry) Clone() *Entry {
	c := *e
	c.TranslatorComments = append([]string(nil), e.TranslatorComments...)
	c.ExtractedComments = append([]string(nil), e.ExtractedComments...)
	c.References = append([]string(nil), e.References...)
	c.Flags = append([]string(nil), e.Flags...)
	if e.MsgStrPlural != nil {
		c.MsgStrPlural = make(map[int]string, len(e.MsgStrPlural))
		for i, v := range e.MsgStrPlural {
			c.MsgStrPlural[i] = v
		}
	}
	return &c
}

// EqualTranslation reports whether two entries carry the same
// translation. Fuzzy and non-fuzzy versions of the same text are
// considered different, except when the translation is blank.
func (e *Entry) EqualTranslation(o *Entry) bool {
	if e.MsgStr != o.MsgStr {
		return false
	}
	if !equalPlural(e.MsgStrPlural, o.MsgStrPlural) {
		return false
	}
	return e.IsFuzzy() == o.IsFuzzy() || e.IsBlank()
}

func equalPlural(a, b map[int]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}

// File represents a parsed PO/POT file.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the translatable message entries.
	Entries []*Entry
}

// NewFile creates a new empty PO file.
func NewFile() *File {
	return &File{
		Header: &Entry{
			MsgID:  "",
			MsgStr: "",
		},
		Entries: make([]*Entry, 0),
	}
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{MsgID: "", MsgStr: ""}
	}

	lines := strings.Split(f.Header.MsgStr, "\n")
	found := false
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				lines[i] = name + ": " + value
				found = true
				break
			}
		}
	}
	if !found {
		// Insert before trailing empty line
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = append(lines[:len(lines)-1], name+": "+value, "")
		} else {
			lines = append(lines, name+": "+value)
		}
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// EntryByKey finds an active entry by its identity key.
func (f *File) EntryByKey(key Key) *Entry {
	for _, e := range f.Entries {
		if e.Key() == key && !e.Obsolete {
			return e
		}
	}
	return nil
}

// Index builds a key→entry map over all entries. The first occurrence
// of a key wins; later duplicates are ignored, never merged together.
func (f *File) Index() map[Key]*Entry {
	idx := make(map[Key]*Entry, len(f.Entries))
	for _, e := range f.Entries {
		key := e.Key()
		if _, ok := idx[key]; !ok {
			idx[key] = e
		}
	}
	return idx
}

// Parse reads a PO/POT file from a reader.
func Parse(r io.Reader) (*File, error) {
	f := NewFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // tracks the last msgid/msgstr/etc. field for multiline strings
	lineNum := 0

	flush := func() {
		if current == nil {
			return
		}
		if current.MsgID == "" && !current.Obsolete {
			f.Header = current
		} else {
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Empty line separates entries
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			current = &Entry{
				MsgStrPlural: make(map[int]string),
			}
		}

		// Handle obsolete entries. gettext prefixes every line of an
		// obsolete entry with "#~", its previous msgid with "#~|", and
		// may emit a bare "#~" for an empty line.
		if strings.HasPrefix(line, "#~") {
			current.Obsolete = true
			switch {
			case line == "#~":
				continue
			case strings.HasPrefix(line, "#~|"):
				line = "#" + line[2:]
			case strings.HasPrefix(line, "#~ "):
				line = line[3:]
			default:
				return nil, fmt.Errorf("line %d: unrecognized line: %s", lineNum, line)
			}
		}

		// Comment lines
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#~") {
			if strings.HasPrefix(line, "#:") {
				// Reference
				refs := strings.TrimSpace(line[2:])
				current.References = append(current.References, refs)
			} else if strings.HasPrefix(line, "#,") {
				// Flags
				flagStr := strings.TrimSpace(line[2:])
				for _, flag := range strings.Split(flagStr, ",") {
					flag = strings.TrimSpace(flag)
					if flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			} else if strings.HasPrefix(line, "#.") {
				// Extracted comment
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			} else if strings.HasPrefix(line, "#|") {
				// Previous msgid
				prev := strings.TrimSpace(line[2:])
				if strings.HasPrefix(prev, "msgid ") {
					current.PreviousMsgID = unquote(strings.TrimPrefix(prev, "msgid "))
				}
			} else {
				// Translator comment
				comment := line[1:]
				if strings.HasPrefix(comment, " ") {
					comment = comment[1:]
				}
				current.TranslatorComments = append(current.TranslatorComments, comment)
			}
			continue
		}

		// msgctxt
		if strings.HasPrefix(line, "msgctxt ") {
			current.MsgCtxt = unquote(strings.TrimPrefix(line, "msgctxt "))
			lastField = "msgctxt"
			continue
		}

		// msgid_plural
		if strings.HasPrefix(line, "msgid_plural ") {
			current.MsgIDPlural = unquote(strings.TrimPrefix(line, "msgid_plural "))
			lastField = "msgid_plural"
			continue
		}

		// msgid
		if strings.HasPrefix(line, "msgid ") {
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"
			continue
		}

		// msgstr[N]
		if strings.HasPrefix(line, "msgstr[") {
			var idx int
			var quoted string
			n, err := fmt.Sscanf(line, "msgstr[%d]", &idx)
			if err != nil || n != 1 {
				return nil, fmt.Errorf("line %d: invalid msgstr index: %s", lineNum, line)
			}
			// Find the quoted string after "] "
			bracketEnd := strings.Index(line, "] ")
			if bracketEnd < 0 {
				return nil, fmt.Errorf("line %d: invalid msgstr format: %s", lineNum, line)
			}
			quoted = line[bracketEnd+2:]
			current.MsgStrPlural[idx] = unquote(quoted)
			lastField = fmt.Sprintf("msgstr[%d]", idx)
			continue
		}

		// msgstr
		if strings.HasPrefix(line, "msgstr ") {
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"
			continue
		}

		// Continuation line (starts with ")
		if strings.HasPrefix(line, "\"") {
			val := unquote(line)
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				var idx int
				fmt.Sscanf(lastField, "msgstr[%d]", &idx)
				current.MsgStrPlural[idx] += val
			}
			continue
		}

		return nil, fmt.Errorf("line %d: unrecognized line: %s", lineNum, line)
	}

	// Flush last entry
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}

	return f, nil
}

// ParseFile reads a PO/POT file from disk.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Write writes the PO file to a writer.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	// Write header
	if f.Header != nil {
		if err := writeEntry(bw, f.Header); err != nil {
			return err
		}
	}

	// Write entries
	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		if err := writeEntry(bw, e); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes the PO file to disk.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.Write(out)
}

func writeEntry(w *bufio.Writer, e *Entry) error {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	// Translator comments
	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}

	// Extracted comments
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}

	// References
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}

	// Flags
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}

	// Previous msgid
	if e.PreviousMsgID != "" {
		if e.Obsolete {
			fmt.Fprintf(w, "#~| msgid %s\n", Quote(e.PreviousMsgID))
		} else {
			fmt.Fprintf(w, "#| msgid %s\n", Quote(e.PreviousMsgID))
		}
	}

	// msgctxt
	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix+"msgctxt", e.MsgCtxt)
	}

	// msgid
	writeQuotedField(w, prefix+"msgid", e.MsgID)

	// msgid_plural
	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	// msgstr / msgstr[N]
	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		// Sort plural indices
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeQuotedField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix+"msgstr", e.MsgStr)
	}

	return nil
}

// writeQuotedField writes a PO field with proper multiline quoting.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, Quote(value))
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", Quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", Quote(part))
		}
	}
}

// Quote produces a PO-style quoted string on a single line.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// unquote removes PO-style quoting from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String()
}
