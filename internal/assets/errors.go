package assets

import "errors"

// Sentinel errors for asset resolution.
var (
	// ErrFetch indicates the referenced image could not be downloaded.
	ErrFetch = errors.New("image fetch failed")

	// ErrUnsupportedReference indicates a reference that cannot be fetched,
	// such as a data: URI or a relative path.
	ErrUnsupportedReference = errors.New("unsupported image reference")

	// ErrInvalidAssetName indicates the filename derived from a reference is
	// unsafe to use inside the asset directory.
	ErrInvalidAssetName = errors.New("invalid asset name")

	// ErrAssetTooLarge indicates the response body exceeded the size limit.
	ErrAssetTooLarge = errors.New("image exceeds maximum size")
)
