// Package name derives the different spellings of a human readable name:
// a constant identifier, a target name, a variable key and a macro.
package name

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	separators = regexp.MustCompile(`(^|[ \-_])(.)`)
	nonWord    = regexp.MustCompile(`\W`)
)

// Name is a human readable name such as "Hello World".
type Name struct {
	text string
}

// New wraps text as a Name.
func New(text string) Name {
	return Name{text: text}
}

// FromTarget converts a target name like "hello-world" into "Hello World".
func FromTarget(target string) Name {
	text := separators.ReplaceAllStringFunc(target, func(m string) string {
		r, _ := utf8.DecodeLastRuneInString(m)
		return " " + string(unicode.ToUpper(r))
	})
	return New(strings.TrimSpace(text))
}

// Text returns the name as given.
func (n Name) Text() string {
	return n.text
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return n.text
}

// Identifier is suitable for a constant identifier: whitespace removed.
func (n Name) Identifier() string {
	return whitespace.ReplaceAllString(n.text, "")
}

// Target is suitable for a target name: lowercase, words joined by '-'.
func (n Name) Target() string {
	return strings.ToLower(whitespace.ReplaceAllString(n.text, "-"))
}

// Key is suitable for a variable name. Each postfix part is appended.
func (n Name) Key(postfix ...string) string {
	parts := append([]string{n.text}, postfix...)
	for i, part := range parts {
		parts[i] = whitespace.ReplaceAllString(strings.ToLower(part), "_")
	}
	return strings.Join(parts, "_")
}

// Macro is suitable for a C macro or an exported environment variable.
// Characters that cannot appear in an identifier become '_'.
func (n Name) Macro(prefix ...string) string {
	parts := append(append([]string{}, prefix...), n.text)
	for i, part := range parts {
		part = whitespace.ReplaceAllString(strings.ToUpper(part), "_")
		parts[i] = nonWord.ReplaceAllString(part, "_")
	}
	return strings.Join(parts, "_")
}

// HeaderGuard is suitable for a C header include guard.
func (n Name) HeaderGuard(path ...string) string {
	return n.Macro(path...) + "_H"
}
