package ioutils

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultDirPermissions is used for every directory the downloader creates.
const DefaultDirPermissions = 0755

// lookalikes maps characters that are forbidden in file names on at least one
// common filesystem to a visually similar character that is allowed everywhere.
var lookalikes = map[rune]rune{
	':':  '꞉',
	'/':  '／',
	'\\': '＼',
	'?':  '？',
	'*':  '∗',
	'"':  '＂',
	'<':  '‹',
	'>':  '›',
	'|':  '￨',
}

var isLookalike = func() map[rune]bool {
	m := make(map[rune]bool, len(lookalikes))
	for _, r := range lookalikes {
		m[r] = true
	}
	return m
}()

// SanitizeFileName makes an arbitrary title, author or file name safe to use
// as a single path element on any filesystem.
//
// The following transformations are applied:
//   - Unicode is normalized to NFKC
//   - Each of : / \ ? * " < > | is replaced by a fixed lookalike (꞉ ／ ＼ ？ ∗ ＂ ‹ › ￨)
//   - Trailing spaces and dots are removed (Windows limitation)
//
// Lookalikes already present in the input are left as they are, so applying
// SanitizeFileName twice gives the same result as applying it once.
//
// Example:
//
//	SanitizeFileName("Book 10: The Emperor") // Returns "Book 10꞉ The Emperor"
//	SanitizeFileName("AC/DC...")             // Returns "AC／DC"
func SanitizeFileName(name string) string {
	if name == "" {
		return ""
	}

	name = normalize(name)
	name = strings.Map(func(r rune) rune {
		if safe, ok := lookalikes[r]; ok {
			return safe
		}
		return r
	}, name)

	return strings.TrimRight(name, " .")
}

// normalize applies NFKC to every run of text between lookalike characters.
// Several lookalikes are compatibility characters that NFKC would fold back
// to the forbidden ASCII form.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	start := 0
	for i, r := range s {
		if !isLookalike[r] {
			continue
		}
		b.WriteString(norm.NFKC.String(s[start:i]))
		b.WriteRune(r)
		start = i + utf8.RuneLen(r)
	}
	b.WriteString(norm.NFKC.String(s[start:]))

	return b.String()
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DefaultDirPermissions)
}

// WriteFile writes data to a file, creating or truncating it.
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// NaturalLess reports whether a sorts before b, comparing runs of digits by
// numeric value so that "Part 2" sorts before "Part 10".
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := leadingDigits(a), leadingDigits(b)
		if da != "" && db != "" {
			na, nb := strings.TrimLeft(da, "0"), strings.TrimLeft(db, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			a, b = a[len(da):], b[len(db):]
			continue
		}

		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			return ra < rb
		}
		a, b = a[sa:], b[sb:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
