package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		[]string{"/", "/blog", "/hello", "/ReportKit"},
		[]string{"/signin", "/rest", "/assets"},
	)
	require.NoError(t, err)
	return tbl
}

func TestClassify_CaseVariantsMatch(t *testing.T) {
	tbl := defaultTable(t)

	tests := []struct {
		path       string
		wantPrefix string
		wantSuffix string
	}{
		{"/blog", "/blog", ""},
		{"/BLOG", "/blog", ""},
		{"/Blog/post1", "/blog", "/post1"},
		{"/bLoG/Deep/Nested", "/blog", "/Deep/Nested"},
		{"/blog/", "/blog", "/"},
		{"/reportkit", "/ReportKit", ""},
		{"/REPORTKIT/guide", "/ReportKit", "/guide"},
		{"/hello", "/hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := tbl.Classify(tt.path)
			require.Equal(t, Static, d.Target)
			assert.Equal(t, tt.wantPrefix, d.Route.Prefix)
			assert.Equal(t, tt.wantSuffix, d.Suffix)
			assert.Equal(t, MatchPrefix, d.Route.Kind)
		})
	}
}

func TestClassify_LexicalPrefixWithoutSlashDoesNotMatch(t *testing.T) {
	tbl := defaultTable(t)

	for _, path := range []string{"/blogger", "/Blogger/x", "/hello-world", "/reportkits", "/blo"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, Dynamic, tbl.Classify(path).Target)
		})
	}
}

func TestClassify_RootExactOnly(t *testing.T) {
	tbl := defaultTable(t)

	for _, path := range []string{"", "/"} {
		d := tbl.Classify(path)
		require.Equal(t, Static, d.Target, "path %q", path)
		assert.True(t, d.Route.IsRoot())
		assert.Equal(t, "/", d.Route.Prefix)
		assert.Empty(t, d.Suffix)
	}

	for _, path := range []string{"/workflow/1", "/x", "//", "/index.html"} {
		assert.Equal(t, Dynamic, tbl.Classify(path).Target, "path %q", path)
	}
}

func TestClassify_DenyListTakesPrecedence(t *testing.T) {
	tbl, err := NewTable(
		[]string{"/", "/docs"},
		[]string{"/docs/api", "/SignIn"},
	)
	require.NoError(t, err)

	assert.Equal(t, Static, tbl.Classify("/docs/guide").Target)
	assert.Equal(t, Dynamic, tbl.Classify("/docs/api").Target)
	assert.Equal(t, Dynamic, tbl.Classify("/DOCS/API/v1").Target)
	assert.True(t, tbl.Denied("/signin"))
	assert.True(t, tbl.Denied("/signin/callback"))
	assert.False(t, tbl.Denied("/signing"))
}

func TestClassify_FirstMatchWins(t *testing.T) {
	tbl, err := NewTable([]string{"/blog", "/blog/archive"}, nil)
	require.NoError(t, err)

	d := tbl.Classify("/blog/archive/2024")
	require.Equal(t, Static, d.Target)
	assert.Equal(t, "/blog", d.Route.Prefix)
	assert.Equal(t, "/archive/2024", d.Suffix)
}

func TestClassify_NonASCIIIsNotFolded(t *testing.T) {
	tbl, err := NewTable([]string{"/café"}, nil)
	require.NoError(t, err)

	assert.Equal(t, Static, tbl.Classify("/CAFé").Target)
	assert.Equal(t, Dynamic, tbl.Classify("/CAFÉ").Target)
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name        string
		static      []string
		dynamicOnly []string
	}{
		{"empty static prefix", []string{""}, nil},
		{"missing leading slash", []string{"blog"}, nil},
		{"duplicate by case", []string{"/blog", "/BLOG"}, nil},
		{"root in deny-list", nil, []string{"/"}},
		{"bad deny prefix", nil, []string{"rest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.static, tt.dynamicOnly)
			assert.Error(t, err)
		})
	}
}

func TestNewTable_TrimsTrailingSlash(t *testing.T) {
	tbl, err := NewTable([]string{"/blog/"}, nil)
	require.NoError(t, err)

	entries := tbl.Static()
	require.Len(t, entries, 1)
	assert.Equal(t, "/blog", entries[0].Prefix)
	assert.Equal(t, Static, tbl.Classify("/blog").Target)
}

func TestLabel(t *testing.T) {
	tbl := defaultTable(t)

	assert.Equal(t, "/", tbl.Label("/"))
	assert.Equal(t, "/ReportKit", tbl.Label("/reportkit/x"))
	assert.Equal(t, LabelDynamicOnly, tbl.Label("/rest/workflows"))
	assert.Equal(t, LabelDynamic, tbl.Label("/webhook/abc"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "/reportkit", Fold("/ReportKit"))
	assert.Equal(t, "already", Fold("already"))
	assert.Equal(t, "ÀbÇ", Fold("ÀBÇ"))
	assert.True(t, EqualFold("WebSocket", "websocket"))
	assert.False(t, EqualFold("websocket", "websockets"))
}
