package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**Muy** bonito <script>alert(1)</script>\n\n![foto](https://img.test/a.png)"))

	assert.Contains(t, out, "<strong>Muy</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `referrerpolicy="no-referrer"`)
}

func TestSanitizeRichTextDropsHandlers(t *testing.T) {
	out := string(SanitizeRichText(`<p onclick="x()">Roble <a href="https://x.test">guía</a></p>`))

	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "Roble")
	assert.Contains(t, out, "noreferrer")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "", PlainText("", 10))
	assert.Equal(t, "Mesa de roble macizo", PlainText("<p>Mesa de <b>roble</b></p><p>macizo</p>", 0))

	cut := PlainText("<p>"+strings.Repeat("a", 50)+"</p>", 10)
	assert.Equal(t, strings.Repeat("a", 10)+"…", cut)
}
