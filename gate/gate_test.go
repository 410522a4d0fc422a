package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3batch/s3batch/plan"
)

func testPlan(n int) plan.Plan {
	p := make(plan.Plan, n)
	for i := range p {
		p[i] = plan.Intent{Op: plan.OpDelete, SrcKey: "key"}
	}
	return p
}

func TestReviewYes(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("YES\n"), &out)

	err := g.Review(testPlan(1), ModeYes, "")
	assert.NoError(t, err)
}

func TestReviewYesDeclined(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("no\n"), &out)

	err := g.Review(testPlan(1), ModeYes, "")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReviewStrictBothConfirmations(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("DELETE\ny\n"), &out)

	err := g.Review(testPlan(1), ModeStrict, "DELETE")
	assert.NoError(t, err)
}

func TestReviewStrictTokenIsCaseSensitive(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("delete\ny\n"), &out)

	err := g.Review(testPlan(1), ModeStrict, "DELETE")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReviewStrictSecondConfirmationDeclined(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("DELETE\nn\n"), &out)

	err := g.Review(testPlan(1), ModeStrict, "DELETE")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReviewDryRunShortCircuits(t *testing.T) {
	var out strings.Builder
	// No input at all: dry run must never read a confirmation.
	g := New(strings.NewReader(""), &out)
	g.DryRun = true

	err := g.Review(testPlan(3), ModeStrict, "DELETE")
	assert.ErrorIs(t, err, ErrDryRun)
	assert.Contains(t, out.String(), "[dry-run] delete key")
}

func TestPreviewBounded(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader(""), &out)

	g.Preview(testPlan(20))
	require.Contains(t, out.String(), "Planned 20 operations")
	assert.Equal(t, DefaultPreviewLimit, strings.Count(out.String(), "delete key"))
	assert.Contains(t, out.String(), "and 5 more")
}

func TestPreviewShowAll(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader(""), &out)
	g.ShowAll = true

	g.Preview(testPlan(20))
	assert.Equal(t, 20, strings.Count(out.String(), "delete key"))
	assert.NotContains(t, out.String(), "more")
}

func TestReviewActionStrictToken(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader("DELETE docs\ny\n"), &out)

	err := g.ReviewAction("delete bucket docs", "DELETE docs")
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "delete bucket docs")
}

func TestReviewActionDryRun(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader(""), &out)
	g.DryRun = true

	err := g.ReviewAction("delete bucket docs", "DELETE docs")
	assert.ErrorIs(t, err, ErrDryRun)
	assert.Contains(t, out.String(), "[dry-run] delete bucket docs")
}

func TestReviewEOFCancels(t *testing.T) {
	var out strings.Builder
	g := New(strings.NewReader(""), &out)

	err := g.Review(testPlan(1), ModeYes, "")
	assert.ErrorIs(t, err, ErrCancelled)
}
