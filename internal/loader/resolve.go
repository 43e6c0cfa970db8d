package loader

import (
	"path"
	"strings"
)

const indexSuffix = "/index"

// IsRelative reports whether id starts with a relative marker.
func IsRelative(id string) bool {
	return strings.HasPrefix(id, "./") || strings.HasPrefix(id, "../")
}

// ResolvePath resolves rel against the module identified by parent.
//
// The parent's last segment is its filename and is dropped. Each segment of
// rel is then applied: "." is a no-op, ".." removes one segment, anything
// else is appended.
//
// Example: ResolvePath("/a/b/c", "../d") == "/a/d"
//
// Parameters:
//   - parent: Identifier of the requiring module
//   - rel: The relative identifier
//
// Returns:
//   - string: The resolved identifier
func ResolvePath(parent, rel string) string {
	segs := strings.Split(parent, "/")
	segs = segs[:len(segs)-1]

	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case ".", "":
		case "..":
			// Keep the empty root segment so absolute paths stay absolute.
			if len(segs) > 0 && !(len(segs) == 1 && segs[0] == "") {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, seg)
		}
	}
	return strings.Join(segs, "/")
}

// normalizeID strips the script extension from an identifier.
func normalizeID(id string) string {
	return strings.TrimSuffix(id, ".js")
}

// cacheKeys lists the keys a cache lookup tries for id, in order.
func cacheKeys(id string) []string {
	keys := []string{id}
	if trimmed := strings.TrimSuffix(id, indexSuffix); trimmed != id && trimmed != "" {
		keys = append(keys, trimmed)
	}
	return append(keys, id+indexSuffix)
}

// InteropRule rewrites an identifier into a candidate in the native interop
// namespace. It returns false when the rule does not apply.
type InteropRule func(id string) (string, bool)

// DefaultInteropRules returns the compatibility rewrites tried after the
// literal identifier and its /index form, in order:
//
//  1. the identifier under the prefix directory
//  2. the lowercased identifier under the prefix directory
//  3. the lowercased identifier nested under its own last segment
//  4. the text after the final "." as a member of the namespace before it
//
// Parameters:
//   - prefix: Interop directory name (e.g. "hyperloop")
//
// Returns:
//   - []InteropRule: The rule table
func DefaultInteropRules(prefix string) []InteropRule {
	root := "/" + strings.Trim(prefix, "/") + "/"
	under := func(id string) (string, bool) {
		bare := strings.TrimPrefix(id, "/")
		if bare == "" || strings.HasPrefix(id, root) {
			return "", false
		}
		return bare, true
	}

	return []InteropRule{
		func(id string) (string, bool) {
			bare, ok := under(id)
			if !ok {
				return "", false
			}
			return root + bare, true
		},
		func(id string) (string, bool) {
			bare, ok := under(id)
			if !ok || strings.ToLower(bare) == bare {
				return "", false
			}
			return root + strings.ToLower(bare), true
		},
		func(id string) (string, bool) {
			bare, ok := under(id)
			if !ok {
				return "", false
			}
			lower := strings.ToLower(bare)
			return root + lower + "/" + path.Base(lower), true
		},
		func(id string) (string, bool) {
			bare, ok := under(id)
			if !ok {
				return "", false
			}
			dot := strings.LastIndex(bare, ".")
			if dot <= 0 || dot == len(bare)-1 {
				return "", false
			}
			ns := strings.ReplaceAll(strings.ToLower(bare[:dot]), ".", "/")
			return root + ns + "/" + strings.ToLower(bare[dot+1:]), true
		},
	}
}

// candidates lists the identifiers probed for id, first match wins.
func (l *Loader) candidates(id string) []string {
	out := []string{id, id + indexSuffix}
	seen := map[string]bool{id: true, id + indexSuffix: true}
	for _, rule := range l.rules {
		if c, ok := rule(id); ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
