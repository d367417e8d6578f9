// Package version orders Godot release identifiers.
//
// Identifiers look like "4.2.1", "4.3-beta2" or "3.5.3-stable". They are split
// into numeric and alphabetic tokens and compared token by token, so "4.9.0"
// sorts before "4.10.0" and "4.3-rc1" sorts before "4.3".
package version

import (
	"strings"
	"unicode"
)

// Release channels, ordered from least to most stable.
const (
	ChannelDev    = "dev"
	ChannelAlpha  = "alpha"
	ChannelBeta   = "beta"
	ChannelRC     = "rc"
	ChannelStable = "stable"
)

// channelRank orders pre-release words. Unknown words rank below every known channel.
var channelRank = map[string]int{
	ChannelDev:   1,
	ChannelAlpha: 2,
	ChannelBeta:  3,
	ChannelRC:    4,
}

type token struct {
	text    string
	numeric bool
}

// tokenize splits an identifier on separators and on digit/letter boundaries.
// The word "stable" carries no ordering information and is dropped.
func tokenize(id string) []token {
	var tokens []token
	var cur strings.Builder
	curNumeric := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		text := strings.ToLower(cur.String())
		cur.Reset()
		if !curNumeric && text == ChannelStable {
			return
		}
		tokens = append(tokens, token{text: text, numeric: curNumeric})
	}

	for _, r := range id {
		switch {
		case unicode.IsDigit(r):
			if cur.Len() > 0 && !curNumeric {
				flush()
			}
			curNumeric = true
			cur.WriteRune(r)
		case unicode.IsLetter(r):
			if cur.Len() > 0 && curNumeric {
				flush()
			}
			curNumeric = false
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Compare returns -1, 0 or 1 as a is older than, equal to, or newer than b.
func Compare(a, b string) int {
	ta, tb := tokenize(a), tokenize(b)

	for i := 0; i < len(ta) || i < len(tb); i++ {
		switch {
		case i >= len(ta):
			// a is a prefix of b: "4.3" vs "4.3.1" or "4.3" vs "4.3-rc1"
			return -tailSign(tb[i])
		case i >= len(tb):
			return tailSign(ta[i])
		}
		if c := compareToken(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// tailSign reports how an extra trailing token affects ordering: a trailing
// number makes the identifier newer, a trailing pre-release word makes it older.
func tailSign(t token) int {
	if t.numeric {
		return 1
	}
	return -1
}

func compareToken(a, b token) int {
	switch {
	case a.numeric && b.numeric:
		return compareNumeric(a.text, b.text)
	case a.numeric:
		return 1
	case b.numeric:
		return -1
	}

	ra, rb := channelRank[a.text], channelRank[b.text]
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.text, b.text)
}

// compareNumeric compares digit strings of any length without overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Channel derives the release channel from an identifier's first alphabetic
// token. Identifiers without one are stable.
func Channel(id string) string {
	for _, t := range tokenize(id) {
		if t.numeric {
			continue
		}
		if _, ok := channelRank[t.text]; ok {
			return t.text
		}
		return ChannelDev
	}
	return ChannelStable
}

// Major returns the leading numeric segment of an identifier, or "" when there is none.
func Major(id string) string {
	tokens := tokenize(id)
	if len(tokens) == 0 || !tokens[0].numeric {
		return ""
	}
	return tokens[0].text
}
