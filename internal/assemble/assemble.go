// Package assemble renders a batch summary into the final markdown
// artifact and writes it to disk atomically.
package assemble

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gemocr/gemocr/internal/batch"
)

const sectionSeparator = "\n\n---\n\n"

// Build renders the summary into a single markdown document. One section
// per input file, in batch order: a source comment and a heading naming
// the file, then either the extracted text or a visibly marked error
// note. Output is deterministic; it embeds no timestamps.
func Build(s batch.Summary) []byte {
	if len(s.Results) == 0 {
		return []byte{}
	}

	var sb strings.Builder
	for i, r := range s.Results {
		if i > 0 {
			sb.WriteString(sectionSeparator)
		}
		name := filepath.Base(r.Path)
		fmt.Fprintf(&sb, "<!-- Source: %s -->\n\n## %s\n\n", name, name)
		if r.Failed() {
			fmt.Fprintf(&sb, "> **Error:** failed to process %s: %s", name, r.Err)
		} else {
			sb.WriteString(strings.TrimRight(r.Text, "\n"))
		}
	}
	sb.WriteString("\n")
	return []byte(sb.String())
}
