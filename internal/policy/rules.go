package policy

import "regexp"

// Shared fragments. Segments are matched in policy form (unquoted,
// lower-cased, program base-named), so -R and -r look the same.
const (
	optSudo      = `^(?:sudo(?:\s+-\S+)*\s+)?`
	recursiveArg = `(?:-[a-z]*r[a-z]*|--recursive)`
	// rootTarget is a whole token naming /, the home directory, or the
	// current/parent working tree.
	rootTarget = `(?:/|/\*|~|~/|~/\*|\$home/?|\$\{home\}/?|\*|\.|\./|\./\*|\.\.|\.\./)`
	tokenEnd   = `(?:\s|$)`
)

// defaultRules is the built-in, ordered rule list. Earlier rules win.
func defaultRules() []Rule {
	return []Rule{
		{
			ID:          "rm-recursive-root",
			Description: "Recursive delete of the filesystem root, the home directory or the whole working tree",
			Pattern:     regexp.MustCompile(optSudo + `rm\s(?:.*\s)?` + recursiveArg + `\s(?:.*\s)?` + rootTarget + tokenEnd),
		},
		{
			ID:          "rm-no-preserve-root",
			Description: "rm with --no-preserve-root disables the safeguard against deleting /",
			Pattern:     regexp.MustCompile(optSudo + `rm\s(?:.*\s)?--no-preserve-root` + tokenEnd),
		},
		{
			ID:           "fork-bomb",
			Description:  "Fork bomb exhausts the process table and hangs the machine",
			Pattern:      regexp.MustCompile(`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
			WholeCommand: true,
		},
		{
			ID:          "mkfs",
			Description: "Formatting a filesystem destroys all data on the device",
			Pattern:     regexp.MustCompile(optSudo + `mkfs(?:\.[a-z0-9]+)?` + tokenEnd),
		},
		{
			ID:          "dd-to-device",
			Description: "dd writing directly to a block device overwrites the disk",
			Pattern:     regexp.MustCompile(optSudo + `dd\s(?:.*\s)?of=/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk)`),
		},
		{
			ID:          "redirect-to-device",
			Description: "Redirecting output to a block device overwrites the disk",
			Pattern:     regexp.MustCompile(`>\s*/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk)`),
		},
		{
			ID:          "chmod-chown-recursive-root",
			Description: "Recursive permission or ownership change on / breaks the system",
			Pattern:     regexp.MustCompile(optSudo + `ch(?:mod|own|grp)\s(?:.*\s)?` + recursiveArg + `\s(?:.*\s)?(?:/|/\*)` + tokenEnd),
		},
		{
			ID:          "mv-root",
			Description: "Moving / or its top-level contents breaks the system",
			Pattern:     regexp.MustCompile(optSudo + `mv\s(?:-\S+\s+)*(?:/|/\*)\s`),
		},
		{
			ID:          "git-force-push",
			Description: "Force push rewrites remote history irreversibly; use --force-with-lease after confirming with the user",
			Pattern:     regexp.MustCompile(`^git\s(?:.*\s)?push\s(?:.*\s)?(?:-f|--force|-[a-z]*f[a-z]*)` + tokenEnd),
		},
		{
			ID:          "git-history-purge",
			Description: "Rewriting all history or expiring the reflog makes lost commits unrecoverable",
			Pattern:     regexp.MustCompile(`^git\s(?:.*\s)?(?:filter-branch|filter-repo|reflog\s+expire\s(?:.*\s)?--expire=(?:now|all)|gc\s(?:.*\s)?--prune=(?:now|all))` + tokenEnd),
		},
	}
}
