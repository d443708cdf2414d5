package handlers

import (
	"fmt"
	"strings"

	"github.com/recommerce/asset/internal/pathutil"
)

// ParseAssetPath turns the wildcard part of a request URL into an asset path.
// The root is returned as "". Backslashes and traversal above the root are
// rejected with pathutil.ErrForbidden.
func ParseAssetPath(urlPath string) (string, error) {
	if strings.Contains(urlPath, `\`) {
		return "", fmt.Errorf("%w: backslash in path", pathutil.ErrForbidden)
	}

	return pathutil.Clean(urlPath)
}
