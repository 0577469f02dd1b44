// Package assets keeps a local copy of every image referenced by a message.
//
// A Resolver maps an image reference to a file in its directory, named after
// the last path segment of the reference:
//
//	https://cdn.example.com/u/42/header.png  ->  {dir}/header.png
//
// Resolution is fetch-if-absent. A file that already exists is returned as is,
// without any network or disk I/O beyond the existence check, so assets
// persist across runs and are never evicted or overwritten. References that
// share a filename share one local file.
//
// Concurrent resolutions of the same filename are collapsed into a single
// fetch, and files are written to a temp name then renamed, so parallel
// workers never observe or produce a partial image.
//
// A failed fetch is reported as ErrFetch. Callers are expected to leave the
// original reference untouched in that case rather than abort the document.
package assets
