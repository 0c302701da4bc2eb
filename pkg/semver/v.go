// Package semver formats and parses semantic version fingerprints (https://semver.org).
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed - version string does not follow MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD] form.
var ErrMalformed = errors.New("semver: malformed version")

type (
	// V is structured semantic version representation
	V struct {
		Major, Minor, Patch uint
		PreRelease          string
		BuildMetadata       []string
	}
)

func (v V) String() string {
	buf := strings.Builder{}
	for i, n := range []uint{v.Major, v.Minor, v.Patch} {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(strconv.FormatUint(uint64(n), 10))
	}
	if v.PreRelease != "" {
		buf.WriteByte('-')
		buf.WriteString(v.PreRelease)
	}
	if len(v.BuildMetadata) > 0 {
		buf.WriteByte('+')
		buf.WriteString(strings.Join(v.BuildMetadata, "."))
	}

	return buf.String()
}

// Parse - reads version fingerprint, optional leading "v" is allowed.
func Parse(s string) (V, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(s), "v")
	v := V{}
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		build := rest[i+1:]
		rest = rest[:i]
		if build == "" {
			return V{}, fmt.Errorf("%w: empty build metadata in %q", ErrMalformed, s)
		}
		v.BuildMetadata = strings.Split(build, ".")
		for _, id := range v.BuildMetadata {
			if id == "" {
				return V{}, fmt.Errorf("%w: empty build identifier in %q", ErrMalformed, s)
			}
		}
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		v.PreRelease = rest[i+1:]
		rest = rest[:i]
		if v.PreRelease == "" {
			return V{}, fmt.Errorf("%w: empty pre-release in %q", ErrMalformed, s)
		}
	}

	core := strings.Split(rest, ".")
	if len(core) != 3 {
		return V{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	nums := [3]*uint{&v.Major, &v.Minor, &v.Patch}
	for i, part := range core {
		if part == "" || (len(part) > 1 && part[0] == '0') {
			return V{}, fmt.Errorf("%w: invalid number %q in %q", ErrMalformed, part, s)
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return V{}, fmt.Errorf("%w: invalid number %q in %q", ErrMalformed, part, s)
		}
		*nums[i] = uint(n)
	}
	return v, nil
}
