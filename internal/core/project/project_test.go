package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in        string
		wantOwner string
		wantRepo  string
	}{
		{"acme/site", "acme", "site"},
		{"git@github.com:acme/site.git", "acme", "site"},
		{"https://github.com/acme/site.git", "acme", "site"},
		{"git@github.com:acme/site", "acme", "site"},
		{"https://github.com/acme/site", "acme", "site"},
		{"https://gitlab.com/org/subgroup/repo.git", "subgroup", "repo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, repo, err := ParseRepo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestParseRepo_Invalid(t *testing.T) {
	for _, in := range []string{"", "invalid", "/site", "acme/"} {
		_, _, err := ParseRepo(in)
		assert.Error(t, err, in)
	}
}

func TestRecord_FullName(t *testing.T) {
	assert.Equal(t, "acme/site", Record{Owner: "acme", Repo: "site"}.FullName())
}
