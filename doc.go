// Package letter2pdf turns a TinyLetter CSV export into one PDF per message
// and a single archive PDF with a cover page, bookmarks and metadata.
//
// # Quick Start
//
// Read the export, create a converter for the companion files, convert, and
// close when done:
//
//	records, err := letter2pdf.ReadRecordsFile("messages.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conv, err := letter2pdf.NewConverter(letter2pdf.Companions{
//	    Stylesheet: "style.css",
//	    Cover:      "cover.pdf",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, letter2pdf.Input{
//	    Records:     records,
//	    OutputDir:   "pdfs",
//	    ArchivePath: "archive.pdf",
//	})
//
// # Conversion Pipeline
//
//  1. Table reading: Subject, Content and Created_At columns located by name
//  2. Document building: remote images downloaded once and relinked, the
//     stylesheet inlined, the date line inserted
//  3. Rendering via headless Chrome (go-rod), one browser per worker
//  4. Merging via pdfcpu: cover first, then messages by ascending index, one
//     bookmark per message at its cumulative page offset
//
// Per-message PDFs are named email_<index>.pdf. A file that already exists
// is reused, so an interrupted run resumes where it stopped.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := letter2pdf.NewConverter(companions,
//	    letter2pdf.WithWorkers(8),
//	    letter2pdf.WithRenderTimeout(time.Minute),
//	    letter2pdf.WithAssetDir("images"),
//	    letter2pdf.WithArchiveMetadata(letter2pdf.Metadata{Title: "My Letters"}),
//	    letter2pdf.WithRenderFailurePolicy(letter2pdf.FailOnMissing),
//	)
//
// # Failures
//
// A message that fails to render is reported in Result.Batch.Failures and,
// under the default OmitFailed policy, left out of the archive. Result.Missing
// lists every index absent from the archive.
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package letter2pdf
