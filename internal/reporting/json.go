package reporting

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/lancet-sec/lancet-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter emits reports as indented JSON with a small tool envelope, so
// downstream tooling can check what produced the file.
type JSONReporter struct {
	ToolVersion string
}

type jsonEnvelope struct {
	Tool    string      `json:"tool"`
	Version string      `json:"version"`
	Report  interface{} `json:"report"`
}

func (r *JSONReporter) ReportFile(w io.Writer, report *schemas.FileReport) error {
	return r.write(w, report)
}

func (r *JSONReporter) ReportBatch(w io.Writer, batch *schemas.BatchReport) error {
	return r.write(w, batch)
}

func (r *JSONReporter) write(w io.Writer, report interface{}) error {
	data, err := json.MarshalIndent(jsonEnvelope{
		Tool:    "lancet",
		Version: r.ToolVersion,
		Report:  report,
	}, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
