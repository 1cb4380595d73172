// Package msgid compares platform message identifiers by platform ordering.
//
// Slack message IDs are "seconds.suffix" timestamps ("1726000000.000200");
// Discord IDs are plain snowflake integers. Both order correctly under
// numeric segment comparison, which avoids the precision loss of parsing
// large snowflakes as floats.
package msgid

import "strings"

// Unset reports whether id represents "no message seen yet".
func Unset(id string) bool {
	return id == "" || id == "0"
}

// Less reports whether a orders strictly before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
// An unset id orders before every set id.
func Compare(a, b string) int {
	if Unset(a) && Unset(b) {
		return 0
	}
	if Unset(a) {
		return -1
	}
	if Unset(b) {
		return 1
	}

	aInt, aFrac := splitID(a)
	bInt, bFrac := splitID(b)

	if c := compareNumeric(aInt, bInt); c != 0 {
		return c
	}
	return compareFraction(aFrac, bFrac)
}

// splitID separates the integer and fractional segments of an id.
func splitID(id string) (string, string) {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// compareNumeric compares two decimal strings numerically. Longer strings
// (after leading-zero trimming) are greater; equal lengths fall back to
// byte comparison.
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

// compareFraction compares fractional segments digit by digit; the shorter
// segment is padded with trailing zeros ("1.5" == "1.500000").
func compareFraction(a, b string) int {
	for len(a) < len(b) {
		a += "0"
	}
	for len(b) < len(a) {
		b += "0"
	}
	return strings.Compare(a, b)
}
