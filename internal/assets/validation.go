package assets

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alnah/go-letter2pdf/internal/fileutil"
)

// AssetName derives the local filename for an image reference: the final
// segment of the URL path, without query or fragment.
// Only http and https references can be resolved.
func AssetName(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if !fileutil.IsURL(ref) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedReference, truncate(ref))
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedReference, err)
	}

	name := path.Base(u.Path)
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateAssetName checks that a name is safe for use as a filename inside
// the asset directory. Dots are allowed (extensions matter to the browser)
// but traversal names and separators are not.
func ValidateAssetName(name string) error {
	switch name {
	case "", ".", "..", "/":
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// truncate keeps inline data: URIs from flooding log lines.
func truncate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
