package repository

import "testing"

func TestNextSequence(t *testing.T) {
	prefix := "REQ-20260901-"

	tests := []struct {
		name    string
		numbers []string
		want    int
	}{
		{"first of the day", nil, 1},
		{"appends after latest", []string{prefix + "0001", prefix + "0002"}, 3},
		{"gap from deleted row does not reuse a taken suffix", []string{prefix + "0002"}, 3},
		{"unordered rows", []string{prefix + "0003", prefix + "0001"}, 4},
		{"malformed number ignored", []string{prefix + "0002", "REQ-legacy"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextSequence(prefix, tt.numbers); got != tt.want {
				t.Errorf("nextSequence(%v) = %d, want %d", tt.numbers, got, tt.want)
			}
		})
	}
}
