package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/lens/internal/review"
)

// JSONWriter outputs the full result as JSON. Several results are written as
// an array.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, results ...*review.Result) error {
	var v any = results
	if len(results) == 1 {
		v = results[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
