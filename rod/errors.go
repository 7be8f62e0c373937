package rod

import "fmt"

// FormatError reports a file that does not match the RODHyPix container
// layout: wrong signature, a malformed or missing header field, or declared
// dimensions inconsistent with the header. A FormatError means the file
// cannot be decoded as-is; it is never worth retrying.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "rod: " + e.Reason
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// DecodeError reports an internally inconsistent compressed stream:
// line offsets out of range, a line that under- or over-runs its byte
// budget, or an unsupported compression tag. Line is the zero-based image
// row being decoded when the inconsistency was found, or -1 when the error
// is not attributable to a single line.
//
// No partial image is ever returned alongside a DecodeError; a grid either
// decodes completely or not at all.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("rod: %v", e.Err)
	}
	return fmt.Sprintf("rod: line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(line int, format string, args ...any) error {
	return &DecodeError{Line: line, Err: fmt.Errorf(format, args...)}
}
