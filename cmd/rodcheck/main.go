// rodcheck validates RODHyPix files for correctness.
//
// Usage:
//
//	rodcheck [-q|--quiet] [-H|--header-only] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet        Only output errors. Exit code indicates pass/fail.
//	-H, --header-only  Validate the signature and headers without decoding pixels.
//	-h, --help         Show this help message.
//	--version          Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, etc.)
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mrjoshuak/go-rodhypix/rod"
	"github.com/mrjoshuak/go-rodhypix/rodmeta"
	"github.com/mrjoshuak/go-rodhypix/rodutil"
)

const version = "1.0.0"

// ValidationIssue represents a single validation problem found in a file.
type ValidationIssue struct {
	Severity string // "error" or "warning"
	Message  string
}

// ValidationResult contains all validation results for a file.
type ValidationResult struct {
	Filename string
	Issues   []ValidationIssue
	Checks   []string // List of checks performed
}

// IsValid returns true if there are no errors (warnings are ok).
func (r *ValidationResult) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			return false
		}
	}
	return true
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "error", Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "warning", Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addCheck(name string) {
	r.Checks = append(r.Checks, name)
}

func main() {
	quiet := false
	headerOnly := false
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-H", "--header-only":
			headerOnly = true
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("rodcheck version %s\n", version)
			fmt.Println("Part of go-rodhypix - Pure Go RODHyPix library")
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input files specified")
		printUsage()
		os.Exit(2)
	}

	validCount := 0
	errorOccurred := false

	for _, filename := range files {
		result, err := validateFile(filename, headerOnly)
		if err != nil {
			if !quiet {
				fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
			}
			errorOccurred = true
			continue
		}

		if result.IsValid() {
			validCount++
		}
		printResult(result, quiet)
	}

	if errorOccurred {
		os.Exit(2)
	}
	if validCount != len(files) {
		os.Exit(1)
	}
}

func validateFile(filename string, headerOnly bool) (*ValidationResult, error) {
	result := &ValidationResult{Filename: filename}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	result.addCheck("signature")
	if !rod.Understand(data) {
		result.addError("not a RODHyPix file (missing OD SAPPHIRE signature)")
		return result, nil
	}

	result.addCheck("headers")
	h, err := rod.DecodeHeader(data)
	if err != nil {
		result.addError("header: %v", err)
		return result, nil
	}

	comp := strings.TrimSpace(h.Text.Compression)
	if !strings.HasPrefix(comp, "TY6") {
		result.addError("unsupported compression scheme %q", comp)
		return result, nil
	}

	if px, py := rodmeta.PixelSize(h); px <= 0 || py <= 0 {
		result.addWarning("non-positive pixel pitch %g x %g mm", px, py)
	}
	if rodmeta.Distance(h) <= 0 {
		result.addWarning("non-positive detector distance %g mm", rodmeta.Distance(h))
	}

	if headerOnly {
		return result, nil
	}

	result.addCheck("payload")
	img, _, err := rod.Decode(data)
	if err != nil {
		result.addError("decode: %v", err)
		return result, nil
	}

	stats := rodutil.ImageStats(img, rodmeta.OverflowThreshold(h))
	if stats.Overflowed > 0 {
		result.addWarning("%d pixels at or above overflow threshold %d",
			stats.Overflowed, rodmeta.OverflowThreshold(h))
	}

	return result, nil
}

func printResult(result *ValidationResult, quiet bool) {
	hasOutput := false
	for _, issue := range result.Issues {
		if issue.Severity == "error" || !quiet {
			fmt.Printf("%s: %s: %s\n", result.Filename, issue.Severity, issue.Message)
			hasOutput = true
		}
	}
	if !quiet && !hasOutput {
		fmt.Printf("%s: ok (%s)\n", result.Filename, strings.Join(result.Checks, ", "))
	}
}

func printUsage() {
	fmt.Println("Usage: rodcheck [-q|--quiet] [-H|--header-only] <filename> [<filename> ...]")
	fmt.Println()
	fmt.Println("Validates RODHyPix detector image files.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -q, --quiet        Only output errors")
	fmt.Println("  -H, --header-only  Skip pixel payload decoding")
	fmt.Println("  -h, --help         Show this help")
	fmt.Println("  --version          Show version")
}
