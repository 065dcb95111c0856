package bulletin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	src := `<html><head><title> Bülten 1 </title><style>p{}</style></head>` +
		`<body class="doc"><!-- note --><p style="color:red" class="x">Merhaba <b>dünya</b></p>` +
		`<style>.y{}</style><img src="images/a.png"></body></html>`

	title, body, err := Extract([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Bülten 1", title)
	assert.Equal(t, `<p class="x">Merhaba <b>dünya</b></p><img src="images/a.png"/>`, body)
}

func TestExtract_DefaultTitle(t *testing.T) {
	title, body, err := Extract([]byte(`<p>only a fragment</p>`))
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, title)
	assert.Equal(t, "<p>only a fragment</p>", body)
}

func TestExtract_BlankTitle(t *testing.T) {
	title, _, err := Extract([]byte(`<title>   </title><p>x</p>`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, title)
}

func TestRewriteRefs(t *testing.T) {
	doc, err := parseString(`<body><a href="https://x.com/">x</a><a href="#top">t</a>` +
		`<img src="img/p.png"><a href="notes.pdf">n</a></body>`)
	require.NoError(t, err)

	doc.RewriteRefs(func(ref string) (string, bool) {
		if !IsLocalRef(ref) {
			return "", false
		}
		return AssetRef("s", refBase(ref)), true
	})
	body, err := doc.Body()
	require.NoError(t, err)

	assert.Equal(t,
		`<a href="https://x.com/">x</a><a href="#top">t</a><img src="assets/s/p.png"/><a href="assets/s/notes.pdf">n</a>`,
		body)
}

func TestIsLocalRef(t *testing.T) {
	local := []string{"images/a.png", "a.png", "sub/dir/file.pdf", "./x.png"}
	for _, ref := range local {
		assert.True(t, IsLocalRef(ref), ref)
	}
	kept := []string{"", "http://a", "HTTPS://a", "data:image/png;base64,xx", "assets/s/a.png", "../x.png", "/abs.png", "#frag", "mailto:a@b.c",
		"img/../../x.png", "img/../../../../etc/passwd", "a/..%2F..%2Fx.png", "%2e%2e/x.png", "?v=1"}
	for _, ref := range kept {
		assert.False(t, IsLocalRef(ref), ref)
	}
}

func TestRefBase(t *testing.T) {
	assert.Equal(t, "a.png", refBase("images/a.png?v=2"))
	assert.Equal(t, "a.png", refBase("images/a.png#x"))
	assert.Equal(t, "b.jpg", refBase("b.jpg"))
}
