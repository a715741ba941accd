package output

import (
	"encoding/json"

	"github.com/platelog/platelog/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatAnalysis renders a meal analysis as JSON.
func (f *JSONFormatter) FormatAnalysis(analysis *core.MealAnalysis) (string, error) {
	if analysis == nil {
		return "", nil
	}
	return f.marshal(analysis)
}

// FormatEntry renders a stored entry as JSON.
func (f *JSONFormatter) FormatEntry(entry *core.Entry) (string, error) {
	if entry == nil {
		return "", nil
	}
	return f.marshal(entry)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
