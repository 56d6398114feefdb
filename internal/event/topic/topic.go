package topic

import "strings"

// Topic represents a hierarchical event type using dot notation.
// Examples: "empire.collapse", "tick.logical", "lifecycle.saving"
type Topic string

const (
	// Separator is the character used to separate topic segments.
	Separator = "."

	// All is the ancestor of every topic.
	All Topic = "**"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// SegmentCount returns the number of segments in the topic.
func (t Topic) SegmentCount() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), Separator) + 1
}

// Parent drops the last segment. A single-segment topic has the empty
// topic as parent.
func (t Topic) Parent() Topic {
	if i := strings.LastIndex(string(t), Separator); i >= 0 {
		return t[:i]
	}
	return ""
}

// IsValid returns true if the topic is valid.
// A valid topic:
//   - Is not empty
//   - Does not start or end with a separator
//   - Does not contain empty segments
//   - Is All, or contains no "*"
func (t Topic) IsValid() bool {
	if t == All {
		return true
	}
	s := string(t)
	if s == "" || strings.Contains(s, "*") {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Ancestors returns the topic followed by each of its ancestors, most
// specific first, ending with All.
func (t Topic) Ancestors() []Topic {
	if t == All || t == "" {
		return []Topic{All}
	}
	out := make([]Topic, 0, t.SegmentCount()+1)
	for p := t; p != ""; p = p.Parent() {
		out = append(out, p)
	}
	return append(out, All)
}
