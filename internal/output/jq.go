package output

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyJQ runs expr against v after converting it to plain JSON values.
// It returns every value the expression emits.
func ApplyJQ(expr string, v any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, ErrJQ(expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, ErrJQ(expr, err)
	}

	input, err := toPlain(v)
	if err != nil {
		return nil, ErrJQ(expr, fmt.Errorf("encoding input: %w", err))
	}

	var results []any
	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, ErrJQ(expr, err)
		}
		results = append(results, out)
	}
	return results, nil
}
