package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdulachik/sciencepedia/internal/resolver"
	"github.com/charmbracelet/lipgloss"
)

type textStyles struct {
	query lipgloss.Style
	name  lipgloss.Style
	tag   lipgloss.Style
	url   lipgloss.Style
	miss  lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	return textStyles{
		query: r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		name:  r.NewStyle().Bold(true),
		tag:   r.NewStyle().Foreground(lipgloss.Color("243")),
		url:   r.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		miss:  r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// WriteText writes results as a human-readable listing. Colors are used
// only when w is a terminal.
func WriteText(w io.Writer, results []resolver.MatchResult) error {
	styles := newTextStyles(lipgloss.NewRenderer(w))
	doc := NewDocument(results)

	var b strings.Builder
	for i, q := range doc.Queries() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(styles.query.Render(q))
		b.WriteByte('\n')

		recs := doc.results[q]
		if len(recs) == 0 {
			b.WriteString("  ")
			b.WriteString(styles.miss.Render("no match, try synonyms or broader terms"))
			b.WriteByte('\n')
			continue
		}

		for n, rec := range recs {
			fmt.Fprintf(&b, "  %d. %s %s\n     %s\n",
				n+1,
				styles.name.Render(rec.Name),
				styles.tag.Render(fmt.Sprintf("[%s %.3f]", rec.MatchType, rec.Score)),
				styles.url.Render(rec.URL),
			)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
