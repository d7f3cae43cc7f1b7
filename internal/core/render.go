package core

import (
	"bytes"
	"io"
	"strings"

	"github.com/gookit/color"
)

// verbStyles colours the leading protocol verb of a server line.
var verbStyles = map[string]color.Style{
	"OK":      color.New(color.FgGreen),
	"ERROR":   color.New(color.FgRed, color.OpBold),
	"BYE":     color.New(color.FgYellow),
	"JOINED":  color.New(color.FgCyan),
	"LEFT":    color.New(color.FgCyan),
	"NEWNICK": color.New(color.FgMagenta),
	"MESSAGE": color.New(color.FgBlue),
	"PRIVATE": color.New(color.BgBlack, color.FgLightYellow),
}

// renderer is an io.Writer that re-emits complete lines with their
// protocol verb coloured.  Everything after the verb is written
// untouched.
type renderer struct {
	w       io.Writer
	pending []byte
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

func (r *renderer) Write(p []byte) (int, error) {
	r.pending = append(r.pending, p...)
	for {
		i := bytes.IndexByte(r.pending, '\n')
		if i < 0 {
			break
		}
		line := string(r.pending[:i+1])
		r.pending = r.pending[i+1:]
		if _, err := io.WriteString(r.w, colorize(line)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes an unterminated tail as is.
func (r *renderer) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	_, err := r.w.Write(r.pending)
	r.pending = nil
	return err
}

func colorize(line string) string {
	end := strings.IndexAny(line, " \n")
	if end < 0 {
		end = len(line)
	}
	style, ok := verbStyles[line[:end]]
	if !ok {
		return line
	}
	return style.Render(line[:end]) + line[end:]
}
