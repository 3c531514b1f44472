package git_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/depmr/updater/git"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sentinel",
			err:  git.ErrNotFound,
			want: true,
		},
		{
			name: "wrapped",
			err: fmt.Errorf(
				"getting branch: %w", git.ErrNotFound,
			),
			want: true,
		},
		{
			name: "other error",
			err:  errors.New("boom"),
			want: false,
		},
		{
			name: "already exists",
			err:  git.ErrAlreadyExists,
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, git.IsNotFound(tt.err))
		})
	}
}

func TestIsAlreadyExists(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf(
		"creating branch: %w", git.ErrAlreadyExists,
	)

	assert.True(t, git.IsAlreadyExists(wrapped))
	assert.False(t, git.IsAlreadyExists(git.ErrNotFound))
	assert.False(t, git.IsAlreadyExists(nil))
}
