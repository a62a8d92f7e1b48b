package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// Version is an immutable, fully parsed package version.
// The shape follows the conventions of the target ecosystem:
//
//	[epoch!]N(.N)*[{a|b|rc}N][.postN][.devN][+local]
//
// Compare defines a total order over versions, so candidate selection and
// lock output never depend on input ordering.
type Version struct {
	Epoch   int
	Release []int
	Pre     *PreTag
	Post    *int
	Dev     *int
	Local   string
}

// PreTag is a pre-release marker (a, b or rc) with its number.
type PreTag struct {
	Phase  string
	Number int
}

// ParseVersion parses a version string into its canonical form.
func ParseVersion(s string) (Version, error) {
	var v Version
	rest := strings.TrimSpace(strings.ToLower(s))
	if rest == "" {
		return v, zerr.With(ErrInvalidVersion, "input", s)
	}

	// Epoch
	if idx := strings.IndexByte(rest, '!'); idx >= 0 {
		epoch, err := strconv.Atoi(rest[:idx])
		if err != nil || epoch < 0 {
			return v, zerr.With(ErrInvalidVersion, "input", s)
		}
		v.Epoch = epoch
		rest = rest[idx+1:]
	}

	// Local label
	if idx := strings.IndexByte(rest, '+'); idx >= 0 {
		v.Local = rest[idx+1:]
		rest = rest[:idx]
		if v.Local == "" {
			return v, zerr.With(ErrInvalidVersion, "input", s)
		}
	}

	// Release segments, then optional pre/post/dev tail
	release, tail, err := parseRelease(rest)
	if err != nil {
		return v, zerr.With(ErrInvalidVersion, "input", s)
	}
	v.Release = release

	if err := parseTail(&v, tail); err != nil {
		return v, zerr.With(ErrInvalidVersion, "input", s)
	}

	return v, nil
}

// MustParseVersion parses a version string and panics on failure.
// Intended for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseRelease(s string) (release []int, tail string, err error) {
	i := 0
	for {
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i {
			return nil, "", zerr.New("expected release segment")
		}
		n, convErr := strconv.Atoi(s[i:j])
		if convErr != nil {
			return nil, "", convErr
		}
		release = append(release, n)

		if j < len(s) && s[j] == '.' && j+1 < len(s) && s[j+1] >= '0' && s[j+1] <= '9' {
			i = j + 1
			continue
		}
		return release, s[j:], nil
	}
}

func parseTail(v *Version, tail string) error {
	for tail != "" {
		tail = strings.TrimPrefix(tail, ".")
		switch {
		case strings.HasPrefix(tail, "rc"):
			num, rest, err := parseTagNumber(tail[2:])
			if err != nil {
				return err
			}
			v.Pre = &PreTag{Phase: "rc", Number: num}
			tail = rest
		case strings.HasPrefix(tail, "a"):
			num, rest, err := parseTagNumber(tail[1:])
			if err != nil {
				return err
			}
			v.Pre = &PreTag{Phase: "a", Number: num}
			tail = rest
		case strings.HasPrefix(tail, "b"):
			num, rest, err := parseTagNumber(tail[1:])
			if err != nil {
				return err
			}
			v.Pre = &PreTag{Phase: "b", Number: num}
			tail = rest
		case strings.HasPrefix(tail, "post"):
			num, rest, err := parseTagNumber(tail[4:])
			if err != nil {
				return err
			}
			n := num
			v.Post = &n
			tail = rest
		case strings.HasPrefix(tail, "dev"):
			num, rest, err := parseTagNumber(tail[3:])
			if err != nil {
				return err
			}
			n := num
			v.Dev = &n
			tail = rest
		default:
			return zerr.With(zerr.New("unexpected version suffix"), "suffix", tail)
		}
	}
	return nil
}

func parseTagNumber(s string) (num int, rest string, err error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		// A bare tag like "1.0a" means number zero.
		return 0, s, nil
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", err
	}
	return n, s[i:], nil
}

// Compare returns -1, 0 or 1 ordering v against other.
//
// The order is total: epoch, then release segments (missing segments
// compare as zero), then dev < pre-release < final < post, then the
// local label lexicographically.
func (v Version) Compare(other Version) int {
	if v.Epoch != other.Epoch {
		return cmpInt(v.Epoch, other.Epoch)
	}

	if c := cmpRelease(v.Release, other.Release); c != 0 {
		return c
	}

	if c := cmpInt(v.phaseKey(), other.phaseKey()); c != 0 {
		return c
	}
	if v.Pre != nil && other.Pre != nil {
		if c := strings.Compare(prePhaseRank(v.Pre.Phase), prePhaseRank(other.Pre.Phase)); c != 0 {
			return c
		}
		if c := cmpInt(v.Pre.Number, other.Pre.Number); c != 0 {
			return c
		}
	}

	if c := cmpInt(tagKey(v.Post), tagKey(other.Post)); c != 0 {
		return c
	}

	// A dev release sorts before the same version without the dev tag.
	vDev, oDev := 1, 1
	vDevNum, oDevNum := 0, 0
	if v.Dev != nil {
		vDev, vDevNum = 0, *v.Dev
	}
	if other.Dev != nil {
		oDev, oDevNum = 0, *other.Dev
	}
	if c := cmpInt(vDev, oDev); c != 0 {
		return c
	}
	if c := cmpInt(vDevNum, oDevNum); c != 0 {
		return c
	}

	return strings.Compare(v.Local, other.Local)
}

// phaseKey buckets the version for ordering: -2 dev-only, -1 pre-release,
// 0 final and post releases.
func (v Version) phaseKey() int {
	switch {
	case v.Pre != nil:
		return -1
	case v.Post == nil && v.Dev != nil:
		return -2
	default:
		return 0
	}
}

// prePhaseRank maps pre-release phases to strings that sort in release order.
func prePhaseRank(phase string) string {
	switch phase {
	case "a":
		return "0"
	case "b":
		return "1"
	default: // rc
		return "2"
	}
}

func tagKey(t *int) int {
	if t == nil {
		return 0
	}
	return 1 + *t
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if c := cmpInt(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// IsPreRelease reports whether the version carries a pre-release or dev tag.
func (v Version) IsPreRelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// String renders the canonical form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		b.WriteString(strconv.Itoa(v.Epoch))
		b.WriteByte('!')
	}
	for i, seg := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}
	if v.Pre != nil {
		b.WriteString(v.Pre.Phase)
		b.WriteString(strconv.Itoa(v.Pre.Number))
	}
	if v.Post != nil {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(*v.Post))
	}
	if v.Dev != nil {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(*v.Dev))
	}
	if v.Local != "" {
		b.WriteByte('+')
		b.WriteString(v.Local)
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
