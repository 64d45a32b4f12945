package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRemarkRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"refs/notes/remark", true},
		{"refs/notes/remark/experiments", true},
		{"refs/notes/remark-v2", true},
		{"refs/notes/remark.backup", true},
		{"refs/notes/commits", false},
		{"refs/notes/remarkable", false},
		{"refs/heads/remark", false},
		{"remark", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, isRemarkRef(tt.ref))
		})
	}
}
