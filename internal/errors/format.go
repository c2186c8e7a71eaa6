package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
)

var (
	styleError = color.New(color.FgRed, color.OpBold)
	styleCode  = color.New(color.FgWhite, color.OpBold)
	styleHint  = color.New(color.FgCyan)
	styleMuted = color.New(color.FgGray)
)

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

// DisableColors turns off colored output for the whole process.
func DisableColors() {
	color.Disable()
}

// Format renders the error for a terminal: a header line, then the
// indented detail, cause and hint blocks that are set.
func (e *CodedError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(styleError.Sprint("ERROR "))
		b.WriteString(styleCode.Sprint(e.Code + ": "))
	} else {
		b.WriteString(styleError.Sprint("ERROR: "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if lines := wrapText(e.Detail, detailWidth); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", styleMuted.Sprint("Cause: "), e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", styleHint.Sprint("Hint: "), e.Suggestion)
	}

	return b.String()
}

type jsonError struct {
	Code       string   `json:"code,omitempty"`
	Category   Category `json:"category,omitempty"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Cause      string   `json:"cause,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object.
func (e *CodedError) FormatJSON() string {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(je)
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking on
// whitespace. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// Fprint writes err to w in terminal form.
func Fprint(w io.Writer, err error) {
	var ce *CodedError
	if errors.As(err, &ce) {
		io.WriteString(w, ce.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", styleError.Sprint("ERROR:"), err)
}

// FprintJSON writes err to w as one JSON line.
func FprintJSON(w io.Writer, err error) {
	var ce *CodedError
	if !errors.As(err, &ce) {
		ce = &CodedError{Message: err.Error()}
	}
	fmt.Fprintln(w, ce.FormatJSON())
}
