// Command safety verification - pattern screening, allowlisting, and
// path scoping against approved directories.
//
// Information Hiding:
// - Dangerous-pattern catalog
// - Base-command allowlist membership
// - Shell tokenization and path resolution

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// dangerousPattern pairs a compiled pattern with the reason reported on match.
type dangerousPattern struct {
	re     *regexp.Regexp
	reason string
}

// Patterns are checked first; a match rejects the command regardless of
// allowlist membership. First match wins.
var dangerousPatterns = []dangerousPattern{
	{regexp.MustCompile(`\brm\s+(-[a-zA-Z]+\s+)*/(\s|$)`), "rm targeting the filesystem root"},
	{regexp.MustCompile(`\bsudo\b`), "privilege escalation via sudo"},
	{regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*777\b`), "world-writable permissions (chmod 777)"},
	{regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`), "filesystem format (mkfs)"},
	{regexp.MustCompile(`>\s*/etc/(passwd|shadow|sudoers)`), "write to system credential files"},
	{regexp.MustCompile(`\bdd\s+[^|]*of=/dev/`), "direct write to a block device (dd)"},
	{regexp.MustCompile(`>\s*/dev/(sd|hd|nvme)`), "direct write to a block device"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`), "fork bomb"},
}

// essentialCommands bypass the category allowlist; file organization cannot
// work without them. They remain subject to the dangerous-pattern screen.
var essentialCommands = map[string]struct{}{
	"mkdir": {},
	"mv":    {},
	"cp":    {},
}

// allowedCommands is the category allowlist: file operations, navigation,
// system info, archives, and basic network tools.
var allowedCommands = map[string]struct{}{
	// file operations
	"ls": {}, "cat": {}, "head": {}, "tail": {}, "find": {}, "touch": {},
	"rm": {}, "file": {}, "stat": {}, "du": {}, "tree": {}, "wc": {},
	"grep": {}, "sort": {}, "uniq": {},
	// navigation
	"cd": {}, "pwd": {},
	// system info
	"whoami": {}, "date": {}, "uname": {}, "df": {}, "ps": {}, "which": {},
	"uptime": {}, "sleep": {},
	// archives
	"tar": {}, "zip": {}, "unzip": {}, "gzip": {}, "gunzip": {},
	// basic network tools
	"ping": {}, "curl": {}, "wget": {}, "host": {},
	// output
	"echo": {}, "printf": {},
}

// pathMutatingCommands get their path arguments scoped against the
// approved-directory allowlist.
var pathMutatingCommands = map[string]struct{}{
	"cp": {}, "mv": {}, "rm": {}, "mkdir": {}, "touch": {},
}

var (
	systemRedirectRe = regexp.MustCompile(`>\s*/(etc|var)/`)
	backgroundTokens = []string{"nohup", "daemon", "disown"}
)

// ExecContext carries the state the context-aware checks need.
type ExecContext struct {
	ApprovedDirs []string
	WorkingDir   string
}

// Verifier classifies shell commands as dangerous or safe.
type Verifier struct {
	permissiveParse bool
	logger          *zap.Logger
}

// NewVerifier creates a verifier. Tokenization failures reject by default.
func NewVerifier(logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{logger: logger}
}

// WithPermissiveParse makes tokenization failures pass instead of reject.
// Every pass taken under this override is logged.
func (v *Verifier) WithPermissiveParse(on bool) *Verifier {
	v.permissiveParse = on
	return v
}

// Classify reports whether a command is dangerous and why. A safe command
// returns (false, "").
func (v *Verifier) Classify(command string) (bool, string) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return true, "empty command"
	}

	for _, p := range dangerousPatterns {
		if p.re.MatchString(trimmed) {
			return true, p.reason
		}
	}

	if systemRedirectRe.MatchString(trimmed) {
		return true, "output redirection into a system directory"
	}
	if strings.Contains(trimmed, "|") && hasBackgroundToken(trimmed) {
		return true, "piped command with backgrounding"
	}

	base := baseCommand(trimmed)
	if _, ok := essentialCommands[base]; ok {
		return false, ""
	}
	if _, ok := allowedCommands[base]; ok {
		return false, ""
	}
	return true, fmt.Sprintf("command %q is not in the allowed set", base)
}

// VerifyWithContext applies Classify, then scopes path arguments of
// path-mutating commands against the approved directories. The caller's
// home directory is implicitly approved.
func (v *Verifier) VerifyWithContext(command string, ec ExecContext) (bool, string) {
	if dangerous, reason := v.Classify(command); dangerous {
		return false, reason
	}

	base := baseCommand(command)
	if _, ok := pathMutatingCommands[base]; !ok {
		return true, ""
	}

	tokens, err := shlex.Split(command)
	if err != nil {
		if v.permissiveParse {
			v.logger.Warn("passing unparseable command under permissive override",
				zap.String("command", command), zap.Error(err))
			return true, ""
		}
		return false, fmt.Sprintf("could not parse command arguments: %v", err)
	}

	approved := append([]string{}, ec.ApprovedDirs...)
	if home, homeErr := os.UserHomeDir(); homeErr == nil {
		approved = append(approved, home)
	}

	for _, token := range tokens[1:] {
		if strings.HasPrefix(token, "-") || !strings.Contains(token, "/") {
			continue
		}
		path := token
		if !filepath.IsAbs(path) {
			path = filepath.Join(ec.WorkingDir, path)
		}
		path = filepath.Clean(path)
		if !withinAny(path, approved, ec.WorkingDir) {
			return false, fmt.Sprintf("path %s is outside the approved directories", token)
		}
	}
	return true, ""
}

// baseCommand returns the first whitespace-delimited word.
func baseCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func hasBackgroundToken(command string) bool {
	for _, token := range backgroundTokens {
		if strings.Contains(command, token) {
			return true
		}
	}
	// A bare & backgrounds; && merely sequences.
	stripped := strings.ReplaceAll(command, "&&", "")
	return strings.Contains(stripped, "&")
}

// withinAny reports whether path equals or is nested under any directory.
// Relative directories resolve against the same working directory the
// argument paths were resolved against, never the process cwd.
func withinAny(path string, dirs []string, workingDir string) bool {
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workingDir, dir)
		}
		dir = filepath.Clean(dir)
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
