package main

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnknownCommand is returned by help for a command that does not exist.
var ErrUnknownCommand = errors.New("unknown command")

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: letter2pdf [command] [flags] [export.csv]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Turn a TinyLetter CSV export into one PDF per message and a bookmarked archive.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Render messages and merge the archive (default)")
	fmt.Fprintln(w, "  doctor     Check Chrome, environment and companion files")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'letter2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: letter2pdf convert [flags] [export.csv]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render every message of the export and merge them behind the cover page.")
	fmt.Fprintln(w, "Messages whose PDF already exists are skipped, so a rerun only retries failures.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  export.csv    CSV with Subject, Content and Created_At columns")
	fmt.Fprintln(w, "                (optional: config input.path, or pick from the working directory)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Paths:")
	fmt.Fprintln(w, "  -o, --output-dir <dir>    Per-message PDFs (default: pdfs)")
	fmt.Fprintln(w, "  -a, --archive <path>      Merged archive (default: merged_emails.pdf)")
	fmt.Fprintln(w, "      --assets <dir>        Downloaded images (default: images)")
	fmt.Fprintln(w, "      --style <path>        Stylesheet (default: style.css)")
	fmt.Fprintln(w, "      --cover <path>        Cover page PDF (default: coverpage.pdf)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel browsers (1-32, default: 4)")
	fmt.Fprintln(w, "  -t, --timeout <dur>       Page-load timeout per message (default: 30s)")
	fmt.Fprintln(w, "      --fetch-timeout <dur> Download timeout per image (default: 30s)")
	fmt.Fprintln(w, "      --rate-limit <f>      Max image downloads per second (0 = unlimited)")
	fmt.Fprintln(w, "      --date-format <f>     Date line: iso, european, us, long or tokens (DD/MM/YYYY)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Archive:")
	fmt.Fprintln(w, "      --title <s>           Title metadata")
	fmt.Fprintln(w, "      --creator <s>         Creator metadata")
	fmt.Fprintln(w, "      --on-render-failure   omit (merge the rest) or fail (write no archive)")
	fmt.Fprintln(w, "      --on-unreadable       abort (write no archive) or skip (leave it out)")
	fmt.Fprintln(w, "      --optimize            Deduplicate fonts and images in the archive")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --print-config        Print the effective config as YAML and exit")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug detail")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  LETTER2PDF_CONFIG, LETTER2PDF_INPUT, LETTER2PDF_OUTPUT_DIR, LETTER2PDF_ARCHIVE,")
	fmt.Fprintln(w, "  LETTER2PDF_ASSETS_DIR, LETTER2PDF_STYLE, LETTER2PDF_COVER, LETTER2PDF_WORKERS,")
	fmt.Fprintln(w, "  LETTER2PDF_TIMEOUT, LETTER2PDF_FETCH_TIMEOUT, LETTER2PDF_TITLE, LETTER2PDF_CREATOR,")
	fmt.Fprintln(w, "  LETTER2PDF_DATE_FORMAT, LETTER2PDF_ON_RENDER_FAILURE, LETTER2PDF_ON_UNREADABLE")
	fmt.Fprintln(w, "  Flags override environment, environment overrides the config file.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 error, 2 usage or config, 3 I/O, 4 browser, 5 messages missing")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: letter2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that Chrome, the environment and the companion files are ready.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Machine-readable output")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --style <path>        Stylesheet to check")
	fmt.Fprintln(w, "      --cover <path>        Cover page to check")
}

// runHelp prints help for the given command.
func runHelp(args []string, env *Environment) error {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return nil
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: letter2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: letter2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		printUsage(env.Stderr)
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	return nil
}
