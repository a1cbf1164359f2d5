package export

import (
	"fmt"
	"strings"

	ctxpkg "github.com/askai/askai/internal/context"
)

// MarkdownExporter renders a conversation as a markdown transcript with a
// cost footer.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(data ExportData) (string, error) {
	var b strings.Builder
	b.WriteString(ctxpkg.NewFormatter(data.ShowModeratedOutput).FormatTranscript(data.Conversation, data.Turns))

	cost := data.Cost()
	fmt.Fprintf(&b, "---\n\n**Total cost:** $%.6f (input $%.6f, output $%.6f)\n", cost.Total(), cost.InputDollars, cost.OutputDollars)
	return b.String(), nil
}
