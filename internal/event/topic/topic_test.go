package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopic_Segments(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected []string
	}{
		{Topic("empire.collapse"), []string{"empire", "collapse"}},
		{Topic("lifecycle.saving"), []string{"lifecycle", "saving"}},
		{Topic("single"), []string{"single"}},
		{Topic(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			require.Equal(t, tt.expected, tt.topic.Segments())
			require.Equal(t, len(tt.expected), tt.topic.SegmentCount())
		})
	}
}

func TestTopic_Parent(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected Topic
	}{
		{Topic("input.key.typed"), Topic("input.key")},
		{Topic("empire.collapse"), Topic("empire")},
		{Topic("empire"), Topic("")},
		{Topic(""), Topic("")},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			require.Equal(t, tt.expected, tt.topic.Parent())
		})
	}
}

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected bool
	}{
		{"empire.collapse", true},
		{"empire", true},
		{All, true},
		{"", false},
		{".empire", false},
		{"empire.", false},
		{"empire..collapse", false},
		{"empire.*", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			require.Equal(t, tt.expected, tt.topic.IsValid(), "IsValid(%q)", tt.topic)
		})
	}
}

func TestTopic_Ancestors(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected []Topic
	}{
		{"input.key.typed", []Topic{"input.key.typed", "input.key", "input", All}},
		{"empire", []Topic{"empire", All}},
		{All, []Topic{All}},
		{"", []Topic{All}},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			require.Equal(t, tt.expected, tt.topic.Ancestors())
		})
	}
}

func BenchmarkTopic_Ancestors(b *testing.B) {
	tp := Topic("input.key.typed")
	for i := 0; i < b.N; i++ {
		_ = tp.Ancestors()
	}
}
