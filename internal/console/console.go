// Package console is the line-oriented question loop used when the
// full-screen interface is not wanted or stdin is not a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"transcriptqa/internal/service"
)

// Asker is the part of the QA service the loop needs.
type Asker interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
	Describe(err error) string
	Exit()
}

// Options configure the question loop.
type Options struct {
	ExitCommands []string
	ShowSources  bool
}

const (
	banner    = "OFFLINE TRANSCRIPT Q&A"
	wideRule  = "============================================================"
	thinRule  = "----------------------------------------"
	promptMsg = "Enter your question: "
)

// PrintReport writes the result of loading: counts, sources and the overview.
func PrintReport(out io.Writer, report *service.LoadReport) {
	r := lipgloss.NewRenderer(out)
	title := r.NewStyle().Bold(true)
	faint := r.NewStyle().Faint(true)

	fmt.Fprintln(out, wideRule)
	fmt.Fprintln(out, title.Render(banner))
	fmt.Fprintln(out, wideRule)
	fmt.Fprintf(out, "Loaded %d transcript(s), %d chunk(s)\n", report.Transcripts, report.Chunks)
	for _, s := range report.Sources {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	fmt.Fprintln(out, faint.Render(fmt.Sprintf("embedder %s, generator %s", report.Embedder, report.Generator)))
	if report.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, title.Render("Overview:"))
		fmt.Fprintln(out, report.Summary)
	}
}

// Run reads questions from in until an exit command or end of input and
// writes answers to out. Failed questions are reported and the loop goes on.
func Run(ctx context.Context, svc Asker, in io.Reader, out io.Writer, opts Options) error {
	defer svc.Exit()
	exits := exitSet(opts.ExitCommands)
	r := lipgloss.NewRenderer(out)
	title := r.NewStyle().Bold(true)
	warn := r.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	faint := r.NewStyle().Faint(true)

	fmt.Fprintln(out)
	fmt.Fprintln(out, wideRule)
	fmt.Fprintln(out, title.Render("READY - ask your questions"))
	fmt.Fprintln(out, wideRule)
	fmt.Fprintf(out, "Type %s to end the session\n\n", quoted(opts.ExitCommands))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, promptMsg)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Goodbye!")
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if _, ok := exits[strings.ToLower(question)]; ok {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		answer, err := svc.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(out, warn.Render(svc.Describe(err)))
			fmt.Fprintln(out)
			continue
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, title.Render("Answer:"))
		fmt.Fprintln(out, thinRule)
		fmt.Fprintln(out, answer.Text)
		fmt.Fprintln(out, thinRule)
		if opts.ShowSources {
			for i, s := range answer.Sources {
				fmt.Fprintln(out, faint.Render(fmt.Sprintf("[%d] %s #%d (score %.3f)", i+1, s.Chunk.Source, s.Chunk.Position, s.Score)))
			}
		}
		fmt.Fprintln(out)
	}
}

func exitSet(cmds []string) map[string]struct{} {
	if len(cmds) == 0 {
		cmds = []string{"quit", "exit", "q"}
	}
	m := make(map[string]struct{}, len(cmds))
	for _, c := range cmds {
		m[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return m
}

func quoted(cmds []string) string {
	if len(cmds) == 0 {
		cmds = []string{"quit", "exit", "q"}
	}
	q := make([]string, len(cmds))
	for i, c := range cmds {
		q[i] = "'" + c + "'"
	}
	return strings.Join(q, " or ")
}
