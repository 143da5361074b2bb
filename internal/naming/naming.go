// Package naming implements the correlation suffix embedded in filenames and
// alt text. The hosted surface assigns a fresh remote id on every replace, so
// the only stable handle an inbound webhook carries is this suffix.
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// Flag marks the compression state encoded after the uid.
type Flag byte

const (
	FlagCompressed    Flag = 'C'
	FlagNotCompressed Flag = 'N'
)

// Decoded is the result of parsing a correlation suffix out of a name.
type Decoded struct {
	Base string
	UID  int64
	Flag Flag
}

// Encode builds "{base}-{uid}{flag}.{ext}". The ext is given without a dot.
func Encode(base string, uid int64, flag Flag, ext string) string {
	return fmt.Sprintf("%s-%d%c.%s", base, uid, flag, ext)
}

// Decode parses a name of the form "{base}-{uid}{flag}.{ext}". It reports
// false when the name carries no well-formed suffix. The wire format is
// byte-exact: everything after the last '-' before the extension must be
// digits followed by a single flag character.
func Decode(name string) (Decoded, bool) {
	base, _ := SplitExt(name)

	i := strings.LastIndexByte(base, '-')
	if i < 0 || i == len(base)-1 {
		return Decoded{}, false
	}

	token := base[i+1:]
	flag := Flag(token[len(token)-1])
	if flag != FlagCompressed && flag != FlagNotCompressed {
		return Decoded{}, false
	}

	digits := token[:len(token)-1]
	uid, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Decoded{}, false
	}

	return Decoded{Base: base[:i], UID: uid, Flag: flag}, true
}

// Base strips any correlation suffix from name and returns the clean base
// without the extension. A name with no suffix comes back unchanged minus ext.
func Base(name string) string {
	if d, ok := Decode(name); ok {
		return d.Base
	}
	base, _ := SplitExt(name)
	return base
}

// SplitExt splits name at the last dot. The extension is returned without the
// dot; a name with no dot has an empty extension.
func SplitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}
