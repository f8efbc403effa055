package cliui

import (
	"errors"
	"fmt"
	"io"

	"github.com/papercomputeco/turntable/pkg/ingest"
)

// PrintOutcomes writes one line per uploaded file with its final status.
func PrintOutcomes(w io.Writer, outcomes []ingest.Outcome) {
	for _, o := range outcomes {
		name := o.Path
		if name == "" {
			name = o.FileID
		}
		line := fmt.Sprintf("    %s %s %s", Mark(outcomeErr(o)), name, DimStyle.Render(string(o.Status)))
		if o.ErrorMessage != "" {
			line += " " + DimStyle.Render(o.ErrorMessage)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func outcomeErr(o ingest.Outcome) error {
	if o.Processed() {
		return nil
	}
	return errors.New(string(o.Status))
}
