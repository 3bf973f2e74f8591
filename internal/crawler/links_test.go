package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultFilter(t *testing.T) *LinkFilter {
	t.Helper()
	filter, err := NewLinkFilter(DefaultConfig().ExcludePatterns)
	require.NoError(t, err)
	return filter
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "absolute and relative",
			html: `<html><body><a href="https://blog.x.dev"><span>X</span></a><a href="/path/">P</a></body></html>`,
			want: []string{"https://blog.x.dev", "https://blog.x.dev/path/"},
		},
		{
			name: "nested anchors and fragments",
			html: `<div><p><a href="#top">top</a></p><section><a href="/a">a</a></section></div>`,
			want: []string{"https://blog.x.dev/#top", "https://blog.x.dev/a"},
		},
		{
			name: "bare relative resolves against origin",
			html: `<a href="invalid">bad</a>`,
			want: []string{"https://blog.x.dev/invalid"},
		},
		{
			name: "www prefix gets https",
			html: `<a href="www.other.dev/x">o</a>`,
			want: []string{"https://www.other.dev/x"},
		},
		{
			name: "excluded schemes and archives",
			html: `<a href="mailto:a@b.c">m</a><a href="tel:123">t</a><a href="javascript:void(0)">j</a>` +
				`<a href="/files/site.zip">z</a><a href="/list?page=2">p</a><a href="/ok">ok</a>`,
			want: []string{"https://blog.x.dev/ok"},
		},
		{
			name: "binary downloads",
			html: `<a href="/doc.pdf">d</a><a href="/img.jpg">i</a><a href="/song.mp3">s</a><a href="/a.zip">z</a>` +
				`<a href="/photo.PNG?w=2">p</a><a href="/report.xlsx#s1">x</a><a href="/pdf-guide">g</a>`,
			want: []string{"https://blog.x.dev/pdf-guide"},
		},
		{
			name: "duplicates removed in first-seen order",
			html: `<a href="/b">1</a><a href="/a">2</a><a href="/b">3</a><a href="https://blog.x.dev/a">4</a>`,
			want: []string{"https://blog.x.dev/b", "https://blog.x.dev/a"},
		},
		{
			name: "missing and empty href ignored",
			html: `<a>none</a><a href="">empty</a><a href="  ">blank</a>`,
			want: nil,
		},
		{
			name: "unbalanced markup tolerated",
			html: `<html><body><div><a href="/one">one<p><a href="/two">two</div>`,
			want: []string{"https://blog.x.dev/one", "https://blog.x.dev/two"},
		},
		{
			name: "ftp kept as absolute",
			html: `<a href="ftp://files.x.dev/pub">f</a>`,
			want: []string{"ftp://files.x.dev/pub"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractLinks(strings.NewReader(tc.html), "https://blog.x.dev", defaultFilter(t), zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractLinksUsesBaseOrigin(t *testing.T) {
	t.Parallel()

	html := `<a href="/c">c</a><a href="d">d</a>`
	got, err := ExtractLinks(strings.NewReader(html), "https://blog.x.dev/deep/page/", defaultFilter(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://blog.x.dev/c", "https://blog.x.dev/d"}, got)
}

func TestExtractLinksRejectsRelativeBase(t *testing.T) {
	t.Parallel()

	_, err := ExtractLinks(strings.NewReader(`<a href="/x">x</a>`), "/relative", nil, nil)
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestNewLinkFilterRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewLinkFilter([]string{"("})
	require.Error(t, err)
}
