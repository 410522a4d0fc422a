// Package plan turns filtered listings into ordered mutation plans and
// computes the local/remote diff used by upload flows.
package plan

import "fmt"

// Op is the kind of a mutation intent.
type Op int

const (
	OpCopy Op = iota + 1
	OpMove
	OpDelete
	OpUpload
)

func (op Op) String() string {
	switch op {
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	case OpDelete:
		return "delete"
	case OpUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Intent is a single planned mutation, not yet applied. SrcKey is the
// remote source key, or the scanner-relative local key for uploads. DstKey
// is empty for deletes. Reason is a human-readable audit string shown in
// the preview.
type Intent struct {
	Op     Op
	SrcKey string
	DstKey string
	Reason string
}

// Describe renders the intent the way both the dry-run preview and the
// execution log print it, so their output stays identical in content.
func (in Intent) Describe() string {
	switch in.Op {
	case OpDelete:
		if in.Reason != "" {
			return fmt.Sprintf("delete %s (%s)", in.SrcKey, in.Reason)
		}
		return fmt.Sprintf("delete %s", in.SrcKey)
	case OpUpload:
		return fmt.Sprintf("upload %s -> %s", in.SrcKey, in.DstKey)
	default:
		return fmt.Sprintf("%s %s -> %s", in.Op, in.SrcKey, in.DstKey)
	}
}

// Plan is an ordered sequence of intents. Order follows source enumeration;
// the plan is never reordered or deduplicated.
type Plan []Intent

// Count returns the number of intents with the given op.
func (p Plan) Count(op Op) int {
	n := 0
	for _, in := range p {
		if in.Op == op {
			n++
		}
	}
	return n
}
