package window

import (
	"sort"
	"strconv"
	"strings"
)

// Key codes are represented by integers: positive integers are Unicode code
// points (excluding the surrogate range), negative integers are Windows key
// codes for non-character keys. Mirrors key.hpp/key.cpp.
const (
	KeyBackspace = -8
	KeyTab       = -9
	KeyEnter     = -13
	KeyShift     = -16
	KeyControl   = -17
	KeyAlt       = -18
	KeyCapsLock  = -20
	KeyEsc       = -27
	KeySpace     = -32
	KeyPageUp    = -33
	KeyPageDown  = -34
	KeyEnd       = -35
	KeyHome      = -36
	KeyLeft      = -37
	KeyUp        = -38
	KeyRight     = -39
	KeyDown      = -40
	KeyInsert    = -45
	KeyDelete    = -46
	KeyWin       = -91
	KeyMenu      = -93
	KeyF1        = -112
	KeyF2        = -113
	KeyF3        = -114
	KeyF4        = -115
	KeyF5        = -116
	KeyF6        = -117
	KeyF7        = -118
	KeyF8        = -119
	KeyF9        = -120
	KeyF10       = -121
	KeyF11       = -122
	KeyF12       = -123
	KeyNumLock   = -144
)

var sortedValidNonCharKeys = func() []int {
	ks := []int{
		KeyBackspace, KeyTab, KeyEnter, KeyShift, KeyControl, KeyAlt,
		KeyCapsLock, KeyEsc, KeySpace, KeyPageUp, KeyPageDown, KeyEnd,
		KeyHome, KeyLeft, KeyUp, KeyRight, KeyDown, KeyInsert, KeyDelete,
		KeyWin, KeyMenu, KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6, KeyF7,
		KeyF8, KeyF9, KeyF10, KeyF11, KeyF12, KeyNumLock,
	}
	sort.Ints(ks)
	return ks
}()

// isValidKey reports whether key is a valid Unicode character code point
// (excluding surrogates) or one of the whitelisted non-character key codes.
func isValidKey(key int) bool {
	if (key >= 1 && key <= 0xD7FF) || (key >= 0xE000 && key <= 0x10FFFF) {
		return true
	}
	i := sort.SearchInts(sortedValidNonCharKeys, key)
	return i < len(sortedValidNonCharKeys) && sortedValidNonCharKeys[i] == key
}

// validNonCharKeyList is a comma-separated list of the positive (negated)
// non-character key codes, embedded in the main page so client-side script
// (where present) or documentation can enumerate them.
var validNonCharKeyList = func() string {
	parts := make([]string, len(sortedValidNonCharKeys))
	for i, k := range sortedValidNonCharKeys {
		parts[len(parts)-1-i] = strconv.Itoa(-k)
	}
	return strings.Join(parts, ",")
}()
