// pomerge — three-way merge driver for gettext PO translation catalogs.
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/minios-linux/pomerge/config"
	"github.com/minios-linux/pomerge/i18n"
	"github.com/minios-linux/pomerge/merge"
	"github.com/minios-linux/pomerge/pofile"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Exit status contract
// ---------------------------------------------------------------------------

const (
	// exitClean: merge succeeded, no open conflicts.
	exitClean = 0
	// exitConflicts: merge produced a valid file, but conflicts remain.
	exitConflicts = 1
	// exitFatal: malformed input, I/O failure or bad invocation.
	// No output is written in this case.
	exitFatal = 2
)

// exitCode maps a completed merge to the process exit status. The
// merge engine itself never touches exit codes.
func exitCode(conflicts int, noError bool) int {
	if conflicts > 0 && !noError {
		return exitConflicts
	}
	return exitClean
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pomerge",
		Short: "Three-way merge for gettext PO translation catalogs",
		Long: `pomerge — three-way merge for gettext PO translation catalogs.

Entries are matched by (msgctxt, msgid), so reordering never causes
conflicts. Non-overlapping changes merge automatically; overlapping
changes are kept in the output as fuzzy entries with all three values
recorded in comments — the merged file is always a valid PO file that
any PO editor can open.

Commands:
  merge           Merge two divergent catalogs against their ancestor
  install-driver  Register pomerge as a git merge driver for *.po
  version         Show version information

Exit status: 0 no conflicts, 1 conflicts remain (suppress with
--no-error), 2 fatal error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMergeCmd(),
		newInstallDriverCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init(configLanguage())

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(exitFatal)
	}
}

// configLanguage reads the message language from .pomerge.yaml, if
// any. Config errors are ignored here; the merge command reports them.
func configLanguage() string {
	cfg, err := config.Load(".")
	if err != nil || cfg == nil {
		return ""
	}
	return cfg.Language
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pomerge version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// merge (three-way merge of base, local, remote)
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var (
		output  string
		update  bool
		noError bool
	)

	cmd := &cobra.Command{
		Use:   "merge <base> <local> <remote>",
		Short: "Three-way merge two PO catalogs against their common ancestor",
		Long: `Merge the changes of <local> and <remote> relative to <base>.

Writes the merged catalog to standard output unless --output or
--update is given. Conflicting entries stay in the output marked
fuzzy, with the base, local and remote values recorded in translator
comments, so the file remains valid for any PO editor.

When invoked by git as a merge driver, use --update: the <local> file
is overwritten in place and the exit status tells git whether
conflicts remain.`,
		Args: cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(".")
			if err != nil {
				logError("%v", err)
				os.Exit(exitFatal)
			}
			if cfg != nil {
				if !cmd.Flags().Changed("no-error") && cfg.NoError {
					noError = true
				}
				if !cmd.Flags().Changed("update") && cfg.Update {
					update = true
				}
			}

			if output != "" && update {
				logError("--output and --update are mutually exclusive")
				os.Exit(exitFatal)
			}

			res := runMerge(args[0], args[1], args[2], output, update)

			if res.Conflicts > 0 {
				logWarning(i18n.N("%d conflict needs manual review", "%d conflicts need manual review", res.Conflicts), res.Conflicts)
				for _, k := range res.Keys {
					logWarning("  %s", k)
				}
			} else {
				logSuccess(i18n.T("Merged without conflicts"))
			}

			os.Exit(exitCode(res.Conflicts, noError))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write merged catalog to this path (default: stdout)")
	cmd.Flags().BoolVarP(&update, "update", "U", false, "Overwrite <local> with the merged catalog")
	cmd.Flags().BoolVarP(&noError, "no-error", "n", false, "Exit 0 even if conflicts remain")

	return cmd
}

// runMerge parses the three catalogs, merges them and writes the
// result. Fatal conditions (unparseable input, write failure) exit
// immediately; the merged file is rendered in memory first, so a
// fatal error never leaves a partial output behind.
func runMerge(basePath, localPath, remotePath, output string, update bool) *merge.Result {
	logInfo(i18n.T("Merging %s and %s (base %s)"), localPath, remotePath, basePath)

	base := parseCatalog(basePath)
	local := parseCatalog(localPath)
	remote := parseCatalog(remotePath)

	merged, res := merge.Merge(base, local, remote)

	var buf bytes.Buffer
	if err := merged.Write(&buf); err != nil {
		logError("%v", err)
		os.Exit(exitFatal)
	}

	dest := output
	if update {
		dest = localPath
	}
	if dest == "" {
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			logError(i18n.T("Cannot write %s: %v"), "stdout", err)
			os.Exit(exitFatal)
		}
	} else {
		if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
			logError(i18n.T("Cannot write %s: %v"), dest, err)
			os.Exit(exitFatal)
		}
	}

	return res
}

func parseCatalog(path string) *pofile.File {
	f, err := pofile.ParseFile(path)
	if err != nil {
		logError(i18n.T("Cannot parse %s: %v"), path, err)
		os.Exit(exitFatal)
	}
	return f
}

// ---------------------------------------------------------------------------
// install-driver (register pomerge as a git merge driver)
// ---------------------------------------------------------------------------

// poAttributeRule routes *.po files through the pomerge driver.
const poAttributeRule = "*.po merge=pomerge"

func newInstallDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-driver",
		Short: "Register pomerge as a git merge driver for *.po files",
		Long: `Configure the current git repository to merge *.po files with
pomerge instead of the line-based default:

  git config merge.pomerge.name   "gettext PO three-way merge"
  git config merge.pomerge.driver "pomerge merge -U %O %A %B"

and add "` + poAttributeRule + `" to .gitattributes. A non-zero driver
exit tells git that conflicts remain, so --no-error is deliberately
not part of the driver command.`,
		Run: func(cmd *cobra.Command, args []string) {
			runInstallDriver()
		},
	}

	return cmd
}

func runInstallDriver() {
	if _, err := exec.LookPath("git"); err != nil {
		logError("git not found in PATH")
		os.Exit(exitFatal)
	}

	gitConfig := func(key, value string) {
		out, err := exec.Command("git", "config", key, value).CombinedOutput()
		if err != nil {
			logError("git config %s: %v: %s", key, err, strings.TrimSpace(string(out)))
			os.Exit(exitFatal)
		}
	}
	gitConfig("merge.pomerge.name", "gettext PO three-way merge")
	gitConfig("merge.pomerge.driver", "pomerge merge -U %O %A %B")
	logSuccess(i18n.T("Registered pomerge as git merge driver"))

	added, err := ensureAttributeRule(".gitattributes")
	if err != nil {
		logError("%v", err)
		os.Exit(exitFatal)
	}
	if added {
		logSuccess(i18n.T("Added %q to %s"), poAttributeRule, ".gitattributes")
	} else {
		logInfo("%s already routes *.po through pomerge", ".gitattributes")
	}
}

// ensureAttributeRule appends the *.po merge rule to the attributes
// file unless an equivalent line is already present.
func ensureAttributeRule(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == poAttributeRule {
			return false, nil
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += poAttributeRule + "\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("updating %s: %w", path, err)
	}
	return true, nil
}
