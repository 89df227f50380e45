package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/models"
)

// Filter is a compiled jq expression applied to JSON output.
type Filter struct {
	expression string
	code       *gojq.Code
}

// CompileFilter parses and compiles a jq expression. Call it before any
// network traffic so a bad expression fails fast.
func CompileFilter(expression string) (*Filter, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq expression %q: %w", expression, err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression %q: %w", expression, err)
	}

	return &Filter{expression: expression, code: code}, nil
}

func (f *Filter) String() string {
	return f.expression
}

// Write runs the filter over v and writes each result on its own line.
// String results are written raw, everything else as indented JSON.
func (f *Filter) Write(w io.Writer, v any) error {
	var input any
	if err := common.ConvertInterfaceToInterface(v, &input); err != nil {
		return fmt.Errorf("failed to prepare jq input: %w", err)
	}

	iter := f.code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}

		if err, ok := result.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				return nil
			}
			return fmt.Errorf("jq %q: %w", f.expression, err)
		}

		if text, ok := result.(string); ok {
			if _, err := fmt.Fprintln(w, text); err != nil {
				return err
			}
			continue
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
}

// WriteMatches filters the same document WriteJSON would produce.
func (f *Filter) WriteMatches(w io.Writer, matches []models.Match) error {
	sorted := Sort(matches)
	if sorted == nil {
		sorted = []models.Match{}
	}
	return f.Write(w, sorted)
}
