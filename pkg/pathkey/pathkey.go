// Package pathkey canonicalizes (workspace, path) pairs into flat store keys
// and centralizes path-shape validation and segment-boundary matching.
package pathkey

import (
	"strings"

	"github.com/trellisdb/trellis/pkg/core"
)

// Separator joins workspace and path into a composite store key. It may not
// appear in workspace identifiers.
const Separator = "#"

// Validate checks the shape of a document path: it must start with "/" and
// contain no empty, ".", or ".." segments. The bare root "/" is rejected for
// documents; use ValidatePrefix for scan scopes.
func Validate(path string) error {
	if err := ValidatePrefix(path); err != nil {
		return err
	}
	if path == "/" {
		return core.Errorf(core.KindValidation, "path %q does not address a document", path)
	}
	return nil
}

// ValidatePrefix checks the shape of a path used as a scan scope. Unlike
// Validate it accepts the bare root "/".
func ValidatePrefix(path string) error {
	if path == "" {
		return core.Errorf(core.KindValidation, "path is required")
	}
	if !strings.HasPrefix(path, "/") {
		return core.Errorf(core.KindValidation, "path %q must start with %q", path, "/")
	}
	if path == "/" {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return core.Errorf(core.KindValidation, "path %q must not end with %q", path, "/")
	}
	for _, seg := range strings.Split(path[1:], "/") {
		switch {
		case seg == "":
			return core.Errorf(core.KindValidation, "path %q contains an empty segment", path)
		case seg == "." || seg == "..":
			return core.Errorf(core.KindValidation, "path %q contains a relative segment", path)
		case strings.TrimSpace(seg) == "":
			return core.Errorf(core.KindValidation, "path %q contains a blank segment", path)
		}
	}
	return nil
}

// ValidateWorkspace checks a workspace identifier.
func ValidateWorkspace(workspace string) error {
	if workspace == "" {
		return core.Errorf(core.KindValidation, "workspace is required")
	}
	if strings.Contains(workspace, Separator) {
		return core.Errorf(core.KindValidation, "workspace %q contains reserved separator %q", workspace, Separator)
	}
	return nil
}

// Encode builds the composite flat-store key for (workspace, path).
func Encode(workspace, path string) string {
	return workspace + Separator + path
}

// Decode splits a composite key back into workspace and path.
func Decode(key string) (workspace, path string, err error) {
	i := strings.Index(key, Separator)
	if i < 0 {
		return "", "", core.Errorf(core.KindValidation, "malformed store key %q", key)
	}
	return key[:i], key[i+1:], nil
}

// MatchesPrefix reports whether path falls under prefix at a segment
// boundary: the path itself, or any descendant. "/ab" is not under "/a".
func MatchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Parent returns the containing path, or "/" when the path is a top-level
// segment (or the root itself).
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// Base returns the final segment of the path.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// Depth counts the segments of a path; the root has depth zero.
func Depth(path string) int {
	if path == "/" {
		return 0
	}
	return strings.Count(path, "/")
}

// ChildName extracts the immediate-child segment of path below prefix.
// It reports false when path does not descend from prefix.
func ChildName(path, prefix string) (string, bool) {
	if !MatchesPrefix(path, prefix) || path == prefix {
		return "", false
	}
	rest := path[len(prefix):]
	if prefix == "/" {
		rest = path
	}
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}

// Join appends a child segment to a prefix.
func Join(prefix, name string) string {
	if prefix == "/" {
		return "/" + name
	}
	return prefix + "/" + name
}
