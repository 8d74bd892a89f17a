package dom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/novelcipher/internal/protect"
)

func TestNewDocument_HasBody(t *testing.T) {
	doc := NewDocument()
	require.NotNil(t, doc.Body())
}

func TestSetStyle_ReplacesExisting(t *testing.T) {
	doc := NewDocument()
	div := Element("div")
	doc.Append(doc.Body(), div)

	doc.SetStyle(div, "color", "red")
	doc.SetStyle(div, "user-select", "text")
	doc.SetStyle(div, "user-select", "none")

	assert.Equal(t, "red", StyleValue(div, "color"))
	assert.Equal(t, "none", StyleValue(div, "user-select"))
	assert.Len(t, Style(div), 2)
}

func TestSetOn_LastWriteWins(t *testing.T) {
	doc := NewDocument()
	div := Element("div")
	doc.Append(doc.Body(), div)

	var got []string
	doc.SetOn(div, protect.EventCopy, func(*Event) { got = append(got, "first") })
	doc.SetOn(div, protect.EventCopy, func(*Event) { got = append(got, "second") })
	doc.Dispatch(NewEvent(protect.EventCopy, div))
	assert.Equal(t, []string{"second"}, got)

	doc.SetOn(div, protect.EventCopy, nil)
	assert.False(t, doc.On(div, protect.EventCopy))
}

func TestRender_ElementAndText(t *testing.T) {
	doc := NewDocument()
	p := Element("p", "mb-4")
	p.AppendChild(Text("a < b"))
	doc.Append(doc.Body(), p)

	var buf bytes.Buffer
	require.NoError(t, doc.RenderNode(&buf, p))
	assert.Equal(t, `<p class="mb-4">a &lt; b</p>`, buf.String())
	assert.Equal(t, "a < b", TextContent(p))
	assert.Equal(t, p, doc.FirstByClass("mb-4"))
}

func TestAddRemoveClass(t *testing.T) {
	doc := NewDocument()
	div := Element("div", "a", "b")
	doc.AddClass(div, "c")
	doc.AddClass(div, "a")
	doc.RemoveClass(div, "b")

	assert.True(t, HasClass(div, "a"))
	assert.False(t, HasClass(div, "b"))
	assert.True(t, HasClass(div, "c"))
}
