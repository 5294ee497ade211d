package vtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/app.js", "src/app.js"},
		{"./src/app.js", "src/app.js"},
		{"/src//app.js", "src/app.js"},
		{"src\\app.js", "src/app.js"},
		{"src/../app.js", "app.js"},
		{"../../etc/passwd", "etc/passwd"},
		{"", ""},
		{".", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestTree_AddKeepsSiblingsSorted(t *testing.T) {
	tree := New()
	tree.Add("src/b.js")
	tree.Add("src/a.js")
	tree.Add("package.json")
	tree.Add("README.md")
	tree.Add("src/a.js")

	assert.Equal(t, []string{"README.md", "package.json", "src/a.js", "src/b.js"}, tree.Paths())
}

func TestTree_RemovePrunesEmptyAncestors(t *testing.T) {
	tree := FromPaths([]string{"src/components/ui/Button.js", "src/app.js"})

	require.True(t, tree.Remove("src/components/ui/Button.js"))

	assert.False(t, tree.Contains("src/components"))
	assert.True(t, tree.Contains("src"))
	assert.Equal(t, []string{"src/app.js"}, tree.Paths())

	require.True(t, tree.Remove("src/app.js"))
	assert.Empty(t, tree.Root().Children)
}

func TestTree_RemoveMissing(t *testing.T) {
	tree := FromPaths([]string{"src/app.js"})

	assert.False(t, tree.Remove("src/other.js"))
	assert.False(t, tree.Remove("lib/app.js"))
	assert.False(t, tree.Remove(""))
	assert.Equal(t, []string{"src/app.js"}, tree.Paths())
}

func TestTree_RemoveDirectory(t *testing.T) {
	tree := FromPaths([]string{"src/a/x.js", "src/a/y.js", "src/b.js"})

	require.True(t, tree.Remove("src/a"))
	assert.Equal(t, []string{"src/b.js"}, tree.Paths())
}

func TestTree_Render(t *testing.T) {
	tree := FromPaths([]string{"src/app/page.js", "package.json", "src/app/layout.js"})

	want := "package.json\n" +
		"src/\n" +
		"  app/\n" +
		"    layout.js\n" +
		"    page.js\n"
	assert.Equal(t, want, tree.Render())
}

func checkInvariants(t *testing.T, n *Node) {
	t.Helper()
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	assert.True(t, sort.StringsAreSorted(names), "children not sorted: %v", names)

	for i := 1; i < len(names); i++ {
		assert.NotEqual(t, names[i-1], names[i], "duplicate sibling")
	}

	for _, c := range n.Children {
		checkInvariants(t, c)
	}
}

func TestTree_RandomOperationsMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := []string{
		"a.js", "b.js", "src/a.js", "src/b.js", "src/x/y/z.js",
		"src/x/w.js", "lib/util.js", "lib/deep/er/file.js", "z/z/z.js",
	}

	tree := New()
	model := map[string]bool{}

	for i := 0; i < 500; i++ {
		p := pool[rng.Intn(len(pool))]
		if rng.Intn(2) == 0 {
			tree.Add(p)
			model[p] = true
		} else {
			tree.Remove(p)
			delete(model, p)
		}

		checkInvariants(t, tree.Root())

		want := make([]string, 0, len(model))
		for k := range model {
			want = append(want, k)
		}
		sort.Strings(want)
		got := tree.Paths()
		sort.Strings(got)
		if len(want) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, want, got)
		}
	}
}
