package main

import (
	"context"
	"io"
	"os"
	"time"

	letter2pdf "github.com/alnah/go-letter2pdf"
)

// Archiver is the part of letter2pdf.Converter the CLI drives.
type Archiver interface {
	Convert(ctx context.Context, input letter2pdf.Input) (*letter2pdf.Result, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Archiver = (*letter2pdf.Converter)(nil)

// ArchiverFactory creates the Archiver for a run.
type ArchiverFactory func(companions letter2pdf.Companions, opts ...letter2pdf.Option) (Archiver, error)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, the working directory and the archiver constructor.
type Environment struct {
	Now         func() time.Time
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	WorkDir     string // where the input picker looks for exports
	NewArchiver ArchiverFactory
}

// DefaultEnv returns the production environment backed by headless Chrome.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		WorkDir: ".",
		NewArchiver: func(companions letter2pdf.Companions, opts ...letter2pdf.Option) (Archiver, error) {
			return letter2pdf.NewConverter(companions, opts...)
		},
	}
}
