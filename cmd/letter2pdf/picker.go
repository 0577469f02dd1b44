package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrNoInput is returned when no export was given and none could be picked.
var ErrNoInput = errors.New("no input specified")

// maxPickAttempts bounds how often an invalid choice is asked again.
const maxPickAttempts = 3

// pickInput lists the CSV exports in dir and asks which one to convert.
// A lone export is used without asking.
func pickInput(dir string, in io.Reader, out io.Writer) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("listing exports: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no .csv export in %s (pass one as argument)", ErrNoInput, dir)
	}
	slices.Sort(matches)

	if len(matches) == 1 {
		fmt.Fprintf(out, "Using %s\n", matches[0])
		return matches[0], nil
	}
	if in == nil {
		return "", fmt.Errorf("%w: %d exports found, pass one as argument", ErrNoInput, len(matches))
	}

	fmt.Fprintln(out, "Exports found:")
	for i, m := range matches {
		fmt.Fprintf(out, "  %d) %s\n", i+1, filepath.Base(m))
	}

	scanner := bufio.NewScanner(in)
	for range maxPickAttempts {
		fmt.Fprintf(out, "Select export [1-%d]: ", len(matches))
		if !scanner.Scan() {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && n >= 1 && n <= len(matches) {
			return matches[n-1], nil
		}
		fmt.Fprintln(out, "invalid choice")
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading choice: %w", err)
	}
	return "", fmt.Errorf("%w: no export selected", ErrNoInput)
}
