package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeBody(t *testing.T) {
	plain := "Hello,\n\nPlease review the attached document.\n"
	assert.Equal(t, "Hello,\n\nPlease review the attached document.", SanitizeBody(plain))

	html := `<p>Hello team,</p><p>The deploy is <b>done</b>.</p><script>alert("x")</script>`
	got := SanitizeBody(html)
	assert.Contains(t, got, "Hello team,")
	assert.Contains(t, got, "The deploy is done.")
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, "alert")

	entities := `Profit &amp; loss<br>Q3 &gt; Q2`
	got = SanitizeBody(entities)
	assert.Contains(t, got, "Profit & loss")
	assert.Contains(t, got, "Q3 > Q2")
}

func TestCreatePreview(t *testing.T) {
	assert.Equal(t, "short text", CreatePreview("short   text", 50))
	assert.Equal(t, "one two th...", CreatePreview("one two three four", 10))
	assert.Equal(t, "a b c", CreatePreview("a\n\tb\n  c", 50))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
}
