// Package uri parses and canonicalizes wrap URIs.
//
// A URI names a package or module as an authority plus a path:
//
//	wrap://ens/hello.eth
//	wrap://ipfs/QmHash
//	wrap://fs/./build
//
// The scheme is optional on input; "ens/hello.eth" and "/ens/hello.eth"
// both canonicalize to "wrap://ens/hello.eth". The path may be omitted only
// when the scheme is present, as in "wrap://iface". A parsed URI is an immutable
// comparable value and can be used directly as a map key.
package uri

import (
	"strings"
	"unicode"

	"github.com/wippyai/wrap-client/errors"
)

// Scheme is the only accepted URI scheme.
const Scheme = "wrap"

const prefix = Scheme + "://"

// URI is a canonical wrap identifier.
type URI struct {
	authority string
	path      string
}

// Parse canonicalizes raw into a URI.
func Parse(raw string) (URI, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return URI{}, errors.InvalidURI(raw, "empty")
	}

	schemed := false
	if idx := strings.Index(s, "://"); idx >= 0 {
		if !strings.EqualFold(s[:idx], Scheme) {
			return URI{}, errors.InvalidURI(raw, "unsupported scheme "+s[:idx])
		}
		s = s[idx+3:]
		schemed = true
	} else {
		s = strings.TrimPrefix(s, "/")
	}

	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return URI{}, errors.InvalidURI(raw, "contains whitespace or control characters")
		}
	}

	authority, path, found := strings.Cut(s, "/")
	if authority == "" {
		return URI{}, errors.InvalidURI(raw, "missing authority")
	}
	if found && path == "" {
		return URI{}, errors.InvalidURI(raw, "empty path")
	}
	if !found && !schemed {
		return URI{}, errors.InvalidURI(raw, "missing path")
	}

	return URI{authority: authority, path: path}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Authority returns the authority segment (e.g. "ens").
func (u URI) Authority() string {
	return u.authority
}

// Path returns everything after the authority.
func (u URI) Path() string {
	return u.path
}

// IsZero reports whether u is the zero value.
func (u URI) IsZero() bool {
	return u.authority == "" && u.path == ""
}

// String returns the canonical form.
func (u URI) String() string {
	if u.IsZero() {
		return ""
	}
	if u.path == "" {
		return prefix + u.authority
	}
	return prefix + u.authority + "/" + u.path
}

// Compare orders URIs lexicographically by canonical form.
func (u URI) Compare(other URI) int {
	return strings.Compare(u.String(), other.String())
}

// MarshalText implements encoding.TextMarshaler.
func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URI) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Strings renders a URI slice in canonical form.
func Strings(us []URI) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.String()
	}
	return out
}
