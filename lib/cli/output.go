// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/alecthomas/chroma/v2/quick"
	"golang.org/x/term"
)

// Output is where a command writes its results. Color is set when the
// writer is a terminal.
type Output struct {
	Writer io.Writer
	Color  bool
}

// Stdout returns an Output on os.Stdout, coloured when it is a
// terminal.
func Stdout() Output {
	return Output{Writer: os.Stdout, Color: IsTerminal(os.Stdout)}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// WriteJSON writes value as indented JSON. Nil slices are written as
// [] rather than null. On a terminal the JSON is syntax-highlighted.
func (o Output) WriteJSON(value any) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(normalizeNilSlice(value)); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	if o.Color {
		if err := quick.Highlight(o.Writer, buffer.String(), "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err := o.Writer.Write(buffer.Bytes())
	return err
}

// Printf writes formatted text.
func (o Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.Writer, format, args...)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
