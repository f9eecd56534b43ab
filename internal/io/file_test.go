package ioutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"normal-file.mp3", "normal-file.mp3"},
		{"Ranger's Apprentice Book 10: The Emperor of Nihon-Ja", "Ranger's Apprentice Book 10꞉ The Emperor of Nihon-Ja"},
		{"AC/DC", "AC／DC"},
		{`back\slash`, "back＼slash"},
		{"why?", "why？"},
		{"a*b", "a∗b"},
		{`say "hi"`, "say ＂hi＂"},
		{"<tag>", "‹tag›"},
		{"pipe|d", "pipe￨d"},
		{"trailing dots...", "trailing dots"},
		{"trailing spaces   ", "trailing spaces"},
		{"mixed . . ", "mixed"},
		{"ﬁle", "file"},              // NFKC ligature
		{"Cafe\u0301", "Café"},       // combining accent composed
		{"full／width", "full／width"}, // existing lookalike kept
		{"half￨width", "half￨width"}, // existing lookalike kept
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestSanitizeFileName_NoForbiddenCharacters(t *testing.T) {
	inputs := []string{
		`a:b/c\d?e*f"g<h>i|j`,
		"::::",
		"Title: Subtitle / Part 1?",
		`C:\Users\<name>\"file"|x*`,
	}

	for _, in := range inputs {
		got := SanitizeFileName(in)
		assert.False(t, strings.ContainsAny(got, `:/\?*"<>|`), "%q -> %q", in, got)
	}
}

func TestSanitizeFileName_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"Book 10: The Emperor",
		"AC/DC...",
		`all: / \ ? * " < > |`,
		"ﬁ ligature ½",
		"full／width and half￨width",
		"e:\u0301 combining after colon",
		"trailing .. ",
	}

	for _, in := range inputs {
		once := SanitizeFileName(in)
		assert.Equal(t, once, SanitizeFileName(once), "input %q", in)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Author", "Title")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Part 2.mp3", "Part 10.mp3", true},
		{"Part 10.mp3", "Part 2.mp3", false},
		{"Track 01 - B.mp3", "Track 1 - A.mp3", false},
		{"Track 02", "Track 010", true},
		{"a", "b", true},
		{"abc", "abcd", true},
		{"same", "same", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"<"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b))
		})
	}
}
