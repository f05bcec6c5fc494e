// Package sanitize expands environment references in global variable
// values and strips characters that would otherwise let a task-file value
// break out into shell metacharacter territory when later interpolated
// into a command line under exec type "shell".
package sanitize

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches "$NAME" and "${NAME}" references.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandEnv replaces $NAME/${NAME} references in s with the value of the
// named process environment variable, leaving unknown names as empty
// strings (os.Expand's usual behavior, adopted so a typo'd reference fails
// loud downstream rather than leaking a literal "$FOO" into a command).
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.Trim(m, "${}")
		return os.Getenv(name)
	})
}

// dangerousShellChars are stripped from a global's value before it is
// allowed to participate in variable substitution, closing off the
// obvious command-injection vectors (backtick/semicolon/pipe chaining)
// without rejecting the whole value outright.
const dangerousShellChars = "`;|&$(){}<>\n"

// Sanitize removes shell metacharacters from a raw global value. Applied
// once, at parse time, to every KEY=VALUE global — not to command output,
// which is data, not configuration.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(dangerousShellChars, r) {
			return -1
		}
		return r
	}, s)
}

// ExpandAndSanitize is the combined pass applied to every global at parse
// time: environment expansion first (so $HOME resolves before stripping),
// then metacharacter sanitization.
func ExpandAndSanitize(s string) string {
	return Sanitize(ExpandEnv(s))
}
