package letter2pdf

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfcpuEngine implements PDFEngine with pdfcpu.
type pdfcpuEngine struct {
	conf     *model.Configuration
	optimize bool
}

// Compile-time interface check
var _ PDFEngine = (*pdfcpuEngine)(nil)

func newPDFCPUEngine() *pdfcpuEngine {
	conf := model.NewDefaultConfiguration()
	// Chrome output and hand-made cover pages are not always strictly valid.
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuEngine{conf: conf}
}

// PageCount reads the page count of the PDF at path.
func (e *pdfcpuEngine) PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

// Assemble runs merge, optional optimize, outline and metadata as separate
// passes, each writing a new file next to outPath.
func (e *pdfcpuEngine) Assemble(ctx context.Context, inputs []string, outPath string, bookmarks []Bookmark, info Metadata) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input documents")
	}
	dir := filepath.Dir(outPath)
	merged := filepath.Join(dir, "merged.pdf")
	outlined := filepath.Join(dir, "outlined.pdf")

	if len(inputs) == 1 {
		if err := copyFile(inputs[0], merged); err != nil {
			return err
		}
	} else if err := api.MergeCreateFile(inputs, merged, false, e.conf); err != nil {
		return fmt.Errorf("merging %d documents: %w", len(inputs), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.optimize {
		optimized := filepath.Join(dir, "optimized.pdf")
		if err := api.OptimizeFile(merged, optimized, e.conf); err != nil {
			return fmt.Errorf("optimizing archive: %w", err)
		}
		merged = optimized
	}

	src := merged
	if len(bookmarks) > 0 {
		if err := api.AddBookmarksFile(merged, outlined, toPDFCPUBookmarks(bookmarks), true, e.conf); err != nil {
			return fmt.Errorf("adding bookmarks: %w", err)
		}
		src = outlined
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return writeMetadata(src, outPath, info, len(bookmarks) == 0)
}

// toPDFCPUBookmarks converts 0-based start pages to pdfcpu's 1-based pages.
func toPDFCPUBookmarks(bms []Bookmark) []pdfcpu.Bookmark {
	out := make([]pdfcpu.Bookmark, len(bms))
	for i, b := range bms {
		out[i] = pdfcpu.Bookmark{
			Title:    b.Title,
			PageFrom: b.StartPage + 1,
		}
	}
	return out
}

// writeMetadata sets Title and Creator in the info dictionary of src and
// writes the result to dst. dropOutline removes any outline inherited from
// the cover, so an archive without messages carries no bookmarks.
func writeMetadata(src, dst string, info Metadata, dropOutline bool) error {
	ctx, err := api.ReadContextFile(src)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	if dropOutline {
		root, err := ctx.Catalog()
		if err != nil {
			return fmt.Errorf("reading catalog: %w", err)
		}
		root.Delete("Outlines")
		if mode, ok := root["PageMode"].(types.Name); ok && mode == "UseOutlines" {
			root.Delete("PageMode")
		}
	}

	if ctx.Info == nil {
		ir, err := ctx.IndRefForNewObject(types.NewDict())
		if err != nil {
			return fmt.Errorf("creating info dictionary: %w", err)
		}
		ctx.Info = ir
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || d == nil {
		return fmt.Errorf("reading info dictionary: %v", err)
	}

	if info.Title != "" {
		d["Title"] = textString(info.Title)
	}
	if info.Creator != "" {
		d["Creator"] = textString(info.Creator)
	}

	if err := api.WriteContextFile(ctx, dst); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// textString encodes s as a PDF text string: a literal for ASCII, UTF-16BE
// with byte order mark otherwise.
func textString(s string) types.Object {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return types.StringLiteral(literalEscaper.Replace(s))
	}

	units := utf16.Encode([]rune(s))
	b := make([]byte, 2, 2+2*len(units))
	b[0], b[1] = 0xFE, 0xFF
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- cover path is operator-provided
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- staging path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
