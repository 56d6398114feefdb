package instrument

import (
	"strings"
)

// Result records which anchors of a class were spliced. A class counts as
// patched only when every anchor is set.
type Result struct {
	Class   string
	anchors []string
	flags   map[string]bool
}

func newResult(class string, anchors []string) *Result {
	r := &Result{Class: class, anchors: anchors, flags: make(map[string]bool, len(anchors))}
	for _, a := range anchors {
		r.flags[a] = false
	}
	return r
}

func (r *Result) set(anchor string) {
	r.flags[anchor] = true
}

// Anchors returns the expected anchors in plan order.
func (r *Result) Anchors() []string {
	return append([]string(nil), r.anchors...)
}

// Flag reports whether the anchor was spliced.
func (r *Result) Flag(anchor string) bool {
	return r.flags[anchor]
}

// Patched reports whether every anchor was spliced.
func (r *Result) Patched() bool {
	return len(r.Missing()) == 0
}

// Missing returns the anchors that were not spliced, in plan order.
func (r *Result) Missing() []string {
	var out []string
	for _, a := range r.anchors {
		if !r.flags[a] {
			out = append(out, a)
		}
	}
	return out
}

// Err returns nil when the class is patched and an integrity error naming
// the missing anchors otherwise.
func (r *Result) Err() error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	return &IntegrityError{
		Class:  r.Class,
		Kind:   KindAnchorMissing,
		Detail: "unspliced anchors: " + strings.Join(missing, ", "),
	}
}
