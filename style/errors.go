package style

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
)

var ErrCompilerUnavailable = errors.New("style compiler is not available")

// CompileError is one problem reported by the compiler. Line and Column are 0 when unknown.
type CompileError struct {
	Filename string
	Line     int
	Column   int
	Message  string
}

func (e CompileError) Error() string {
	switch {
	case e.Filename == "":
		return e.Message
	case e.Line == 0:
		return fmt.Sprintf("%s: %s", e.Filename, e.Message)
	case e.Column == 0:
		return fmt.Sprintf("%s:%d %s", e.Filename, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s:%d:%d %s", e.Filename, e.Line, e.Column, e.Message)
	}
}

// CompileErrors is a failed compilation.
type CompileErrors []CompileError

func (errs CompileErrors) Error() string {
	msgs := make([]string, len(errs))
	for i := range errs {
		msgs[i] = errs[i].Error()
	}
	return "style compilation failed: " + strings.Join(msgs, "; ")
}

// eg "Error: style.mss:12:4 Unrecognized rule: polygon-fll"
var cartoErrorRegex = regexp.MustCompile(`^(?:\[?[Ee]rror\]?:?\s+)?(?P<file>[^\s:]+):(?P<line>\d+)(?::(?P<column>\d+))?\s+(?P<message>.+)$`)

// parseErrors turns compiler diagnostics into CompileErrors, one per non-empty line.
func parseErrors(output string) CompileErrors {
	var errs CompileErrors
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := cartoErrorRegex.FindStringSubmatch(line)
		if parts == nil {
			errs = append(errs, CompileError{Message: strings.TrimPrefix(strings.TrimPrefix(line, "Error:"), " ")})
			continue
		}
		e := CompileError{Filename: parts[1], Message: parts[4]}
		e.Line, _ = strconv.Atoi(parts[2])
		e.Column, _ = strconv.Atoi(parts[3])
		errs = append(errs, e)
	}
	return errs
}

// WriteErrors prints compilation errors one by one, wrapped at width. Other errors are printed as is.
func WriteErrors(w io.Writer, err error, width int) {
	var errs CompileErrors
	if !errors.As(err, &errs) {
		fmt.Fprintln(w, err)
		return
	}
	for _, e := range errs {
		location := e.Filename
		if e.Line > 0 {
			location += ":" + strconv.Itoa(e.Line)
		}
		if e.Column > 0 {
			location += ":" + strconv.Itoa(e.Column)
		}
		if location == "" {
			location = "error"
		}
		fmt.Fprintln(w, location)
		fmt.Fprintln(w, indent.String(wordwrap.String(e.Message, width-2), 2))
	}
}
