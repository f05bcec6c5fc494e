// Package variables implements TASKER's variable-substitution sub-language:
// @NAME@ global references and @N_field@ task-result references, with
// bounded iterative expansion and a masking rule for secret-like names.
package variables

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"tasker/internal/model"
)

// MaxExpansionDepth bounds the number of substitution passes. A fixed bound
// rather than recursion, per spec.md §9 ("never recursive, to avoid stack
// issues on adversarial inputs").
const MaxExpansionDepth = 10

var (
	taskResultToken = regexp.MustCompile(`(?i)@(\d+)_(stdout|stderr|success|exit)@`)
	globalToken     = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)@`)
)

// ResultLookup resolves a stored task result by ID. Spill files of
// truncated results are read separately, through a ReadSpillFile. Kept as
// an interface rather than a concrete state-manager dependency so the
// resolver stays a pure, independently testable function.
type ResultLookup interface {
	TaskResult(id int) (model.TaskResult, bool)
}

// ReadSpillFile abstracts spill-file access so tests can stub it out.
type ReadSpillFile func(path string) (string, error)

func defaultReadSpillFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Resolve expands @NAME@ and @N_field@ tokens in s, iterating up to
// MaxExpansionDepth times to support chained references. It returns the
// (possibly partially) expanded string and whether every token was
// eventually resolved.
func Resolve(s string, globals model.Globals, results ResultLookup) (string, bool) {
	return resolveWithReader(s, globals, results, defaultReadSpillFile)
}

func resolveWithReader(s string, globals model.Globals, results ResultLookup, read ReadSpillFile) (string, bool) {
	cur := s
	for i := 0; i < MaxExpansionDepth; i++ {
		next, anyReplaced, allResolved := expandOnce(cur, globals, results, read)
		cur = next
		if !anyReplaced {
			return cur, allResolved
		}
	}
	// Bound exhausted: any remaining @...@ token means unresolved.
	return cur, !containsToken(cur)
}

func containsToken(s string) bool {
	return taskResultToken.MatchString(s) || globalToken.MatchString(s)
}

func expandOnce(s string, globals model.Globals, results ResultLookup, read ReadSpillFile) (out string, anyReplaced bool, allResolved bool) {
	allResolved = true

	out = taskResultToken.ReplaceAllStringFunc(s, func(tok string) string {
		m := taskResultToken.FindStringSubmatch(tok)
		id, _ := strconv.Atoi(m[1])
		field := strings.ToLower(m[2])

		if results == nil {
			allResolved = false
			return tok
		}
		res, ok := results.TaskResult(id)
		if !ok {
			allResolved = false
			return tok
		}
		anyReplaced = true

		switch field {
		case "exit":
			return strconv.Itoa(res.ExitCode)
		case "success":
			return strconv.FormatBool(res.Success)
		case "stdout":
			return trimTrailingNewlines(resolveStream(res.Stdout, res.StdoutTruncated, res.StdoutFile, read))
		case "stderr":
			return trimTrailingNewlines(resolveStream(res.Stderr, res.StderrTruncated, res.StderrFile, read))
		default:
			allResolved = false
			return tok
		}
	})

	out = globalToken.ReplaceAllStringFunc(out, func(tok string) string {
		m := globalToken.FindStringSubmatch(tok)
		name := m[1]
		val, ok := globals[name]
		if !ok {
			allResolved = false
			return tok
		}
		anyReplaced = true
		return val
	})

	return out, anyReplaced, allResolved
}

func resolveStream(preview string, truncated bool, spillPath string, read ReadSpillFile) string {
	if truncated && spillPath != "" {
		if full, err := read(spillPath); err == nil {
			return full
		}
	}
	return preview
}

func trimTrailingNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}

// maskPrefixes and maskSuffixes are the case-insensitive name patterns that
// mark a global as secret-like for debug-log masking purposes only; storage
// and substitution are unaffected.
var maskPrefixes = []string{"secret_", "mask_", "hide_", "password_", "token_"}
var maskSuffixes = []string{"_password", "_token", "_secret", "_key"}

// MaskForLog returns the display form of a global value for debug logging:
// the real value unless the name matches a secret-like pattern, in which
// case a length-only placeholder is returned.
func MaskForLog(name, value string) string {
	lower := strings.ToLower(name)
	for _, p := range maskPrefixes {
		if strings.HasPrefix(lower, p) {
			return maskedPlaceholder(value)
		}
	}
	for _, sfx := range maskSuffixes {
		if strings.HasSuffix(lower, sfx) {
			return maskedPlaceholder(value)
		}
	}
	return value
}

func maskedPlaceholder(value string) string {
	return "<masked len=" + strconv.Itoa(len(value)) + ">"
}
