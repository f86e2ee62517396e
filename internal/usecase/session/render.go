package session

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

// NoCandidatesMessage is shown when nothing clears the threshold.
const NoCandidatesMessage = "No relevant candidates found above the threshold."

// view renders cycle output. Styles are bound to the writer, so output to a
// pipe or buffer carries no escape sequences.
type view struct {
	out io.Writer

	header  lipgloss.Style
	id      lipgloss.Style
	score   lipgloss.Style
	subtle  lipgloss.Style
	failure lipgloss.Style
}

func newView(out io.Writer) *view {
	r := lipgloss.NewRenderer(out)
	return &view{
		out:     out,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		id:      r.NewStyle().Bold(true),
		score:   r.NewStyle().Foreground(lipgloss.Color("10")),
		subtle:  r.NewStyle().Foreground(lipgloss.Color("241")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (v *view) prompt(text string) {
	fmt.Fprint(v.out, v.subtle.Render(text))
}

func (v *view) candidates(list []domain.Candidate) {
	fmt.Fprintln(v.out, v.header.Render(fmt.Sprintf("Found %d top candidates.", len(list))))
	fmt.Fprintln(v.out, v.subtle.Render("Ordered by score:"))
	for _, c := range list {
		fmt.Fprintf(v.out, "%s, %s\n",
			v.id.Render("ID: "+strconv.Itoa(c.DocumentID)),
			v.score.Render("Score: "+strconv.FormatFloat(c.AggregateScore, 'f', 4, 64)),
		)
	}
}

func (v *view) summary(text string) {
	fmt.Fprintln(v.out)
	fmt.Fprintln(v.out, v.header.Render("Response:"))
	fmt.Fprintln(v.out, text)
	fmt.Fprintln(v.out)
}

func (v *view) empty() {
	fmt.Fprintln(v.out, v.subtle.Render(NoCandidatesMessage))
}

func (v *view) failed(err error) {
	fmt.Fprintln(v.out, v.failure.Render("Error: "+err.Error()))
}
