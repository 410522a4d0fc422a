// Package gate is the safety gate between a built plan and its execution:
// a bounded preview, literal confirmation tokens and a dry-run mode that
// performs zero mutating calls.
package gate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/s3batch/s3batch/plan"
)

// DefaultPreviewLimit bounds the preview unless ShowAll is set.
const DefaultPreviewLimit = 15

// ErrCancelled is returned when the user declines or mistypes a required
// confirmation. No mutation has been performed when it is returned, and it
// is distinct from every other error class.
var ErrCancelled = errors.New("operation cancelled")

// ErrDryRun is returned after a dry-run preview. No mutation has been
// performed and none should follow.
var ErrDryRun = errors.New("dry run, no changes made")

// Mode selects the confirmation strictness.
type Mode int

const (
	// ModeYes requires a single free-text confirmation compared
	// case-insensitively to "yes".
	ModeYes Mode = iota + 1
	// ModeStrict requires an exact-case literal token followed by a
	// second independent y/n confirmation. Both must pass.
	ModeStrict
)

// Gate reads confirmations from In and renders previews to Out. Both are
// plain streams, so tests drive the gate with strings.Reader.
type Gate struct {
	PreviewLimit int
	ShowAll      bool
	DryRun       bool
	in           *bufio.Reader
	out          io.Writer
}

// New returns a gate with the default preview bound.
func New(in io.Reader, out io.Writer) *Gate {
	return &Gate{
		PreviewLimit: DefaultPreviewLimit,
		in:           bufio.NewReader(in),
		out:          out,
	}
}

// Preview renders the bounded plan preview and the summary count. In
// dry-run mode every line carries a [dry-run] prefix but is otherwise
// identical in content to what execution would log.
func (g *Gate) Preview(p plan.Plan) {
	prefix := ""
	if g.DryRun {
		prefix = "[dry-run] "
	}

	limit := g.PreviewLimit
	if g.ShowAll || limit > len(p) {
		limit = len(p)
	}

	fmt.Fprintf(g.out, "Planned %d operations:\n", len(p))
	for _, in := range p[:limit] {
		fmt.Fprintf(g.out, "  %s%s\n", prefix, in.Describe())
	}
	if rest := len(p) - limit; rest > 0 {
		fmt.Fprintf(g.out, "  ... and %d more (use --show-all to see the full list)\n", rest)
	}
}

// Review previews the plan and walks the confirmation flow for the given
// mode. token is the exact-case literal required by ModeStrict. It returns
// nil when execution may proceed, ErrDryRun after a dry-run preview and
// ErrCancelled on any confirmation mismatch.
func (g *Gate) Review(p plan.Plan, mode Mode, token string) error {
	g.Preview(p)

	if g.DryRun {
		fmt.Fprintf(g.out, "[dry-run] would apply %d operations, exiting\n", len(p))
		return ErrDryRun
	}

	switch mode {
	case ModeYes:
		ok, err := g.confirm("Proceed? (yes/no): ", func(s string) bool {
			return strings.EqualFold(s, "yes")
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	case ModeStrict:
		if err := g.strictConfirm(token); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown confirmation mode: %d", mode)
	}

	return nil
}

// ReviewAction walks the strict confirmation flow for a destructive action
// that has no per-item plan, such as deleting a whole bucket. It prints the
// action description, honours dry-run and requires the exact-case token plus
// a second y/n confirmation.
func (g *Gate) ReviewAction(description, token string) error {
	if g.DryRun {
		fmt.Fprintf(g.out, "[dry-run] %s\n", description)
		return ErrDryRun
	}
	fmt.Fprintf(g.out, "%s\n", description)
	return g.strictConfirm(token)
}

func (g *Gate) strictConfirm(token string) error {
	ok, err := g.confirm(fmt.Sprintf("To proceed, type '%s' and press Enter: ", token), func(s string) bool {
		return s == token
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	ok, err = g.confirm("Are you absolutely sure? (y/n): ", func(s string) bool {
		return strings.EqualFold(s, "y")
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func (g *Gate) confirm(prompt string, accept func(string) bool) (bool, error) {
	fmt.Fprint(g.out, prompt)
	line, err := g.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return accept(strings.TrimSpace(line)), nil
}
