// Package pipeline turns one archived message into a self-contained HTML
// document ready for the PDF renderer.
//
// Build runs these steps in order:
//   - unescape HTML entities in the stored body
//   - parse the body as a fragment (tolerant, never fails on bad markup)
//   - resolve every <img> through the image resolver and point its src at
//     the local copy, leaving it untouched when resolution fails
//   - wrap the fragment in the archive skeleton (subject, "Sent on" date,
//     content) with a stylesheet link; the date is reformatted when a
//     layout is set
//   - inline the stylesheet so the document renders from any location
//
// Rendering to PDF is handled by the root letter2pdf package.
package pipeline
