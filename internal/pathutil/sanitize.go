// Package pathutil provides asset path handling utilities.
//
// Asset paths are forward-slash delimited keys relative to the backend
// namespace. They are never passed through filepath, so behaviour does not
// depend on the host operating system.
package pathutil

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Separator is the canonical asset path separator.
const Separator = "/"

// ErrForbidden is returned for paths that would escape the backend root.
var ErrForbidden = errors.New("path escapes asset root")

// Join joins a directory and a name with a single separator.
// An empty directory yields the name unchanged.
func Join(dir, name string) string {
	dir = strings.TrimSuffix(dir, Separator)
	if dir == "" {
		return name
	}
	return dir + Separator + name
}

// Dir returns the parent directory of an asset path, "." for a bare name.
func Dir(p string) string {
	return path.Dir(p)
}

// Parent returns the directory part of p as the caller spelled it, without
// the final separator. A bare name yields "." and a name directly under the
// separator yields "/".
func Parent(p string) string {
	i := strings.LastIndex(p, Separator)
	switch {
	case i < 0:
		return "."
	case i == 0:
		return Separator
	}
	return p[:i]
}

// Entry builds the listing entry of name inside dir. dir keeps its spelling,
// so Entry(Parent(p), Base(p)) == p for every listed asset.
func Entry(dir, name string) string {
	switch dir {
	case "":
		return name
	case Separator:
		return Separator + name
	}
	return dir + Separator + name
}

// Base returns the last element of an asset path.
func Base(p string) string {
	return path.Base(p)
}

// TrimTrailingSeparator strips exactly one trailing separator.
func TrimTrailingSeparator(p string) string {
	return strings.TrimSuffix(p, Separator)
}

// Flatten removes every forward and backward slash from p so it can be
// used as a single file name.
func Flatten(p string) string {
	return strings.NewReplacer("/", "", `\`, "").Replace(p)
}

// Clean normalises an asset path and rejects traversal above the root.
// The result has no leading separator; the root itself is "".
func Clean(p string) (string, error) {
	if err := ValidatePath(p); err != nil {
		return "", err
	}

	depth := 0
	for _, part := range strings.Split(p, Separator) {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", ErrForbidden
			}
		default:
			depth++
		}
	}

	cleaned := strings.TrimPrefix(path.Clean(Separator+p), Separator)
	return cleaned, nil
}

// ValidatePath rejects null bytes and control characters.
func ValidatePath(p string) error {
	if strings.Contains(p, "\x00") {
		return fmt.Errorf("%w: null byte in path", ErrForbidden)
	}

	for _, char := range p {
		if char < 32 && char != '\t' {
			return fmt.Errorf("%w: control character in path", ErrForbidden)
		}
	}

	return nil
}
