package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testInput() Input {
	return Input{
		ModelName: "tiny",
		Text:      "hi there",
		Tokens:    []string{"h", "i", "▁t"},
		Attentions: [][][][]float64{
			{
				{
					{1, 0, 0},
					{0.5, 0.5, 0},
					{0.2, 0.3, 0.5},
				},
				{
					{1, 0, 0},
					{0.9, 0.1, 0},
					{0.1, 0.1, 0.8},
				},
			},
		},
	}
}

func TestRenderHead(t *testing.T) {
	page, err := RenderHead(testInput())
	assert.NoError(t, err)
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "Attention Head View")
	assert.Contains(t, page, `["h","i","▁t"]`)
	assert.Contains(t, page, "0.500000")
	// Self-contained: no external resources.
	assert.NotContains(t, page, "src=\"http")
	assert.NotContains(t, page, "href=\"http")
}

func TestRenderModel(t *testing.T) {
	page, err := RenderModel(testInput())
	assert.NoError(t, err)
	assert.Contains(t, page, "Attention Model View")
	assert.Contains(t, page, "Heads per Layer")
}

func TestRenderDispatch(t *testing.T) {
	in := testInput()
	_, err := Render("head", in)
	assert.NoError(t, err)
	_, err = Render("model", in)
	assert.NoError(t, err)
	_, err = Render("layer", in)
	assert.Error(t, err)
}

func TestRenderEscapesUserInput(t *testing.T) {
	in := testInput()
	in.ModelName = "tiny<script>alert(1)</script>"
	in.Text = "<b>bold</b>"
	page, err := RenderHead(in)
	assert.NoError(t, err)
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.NotContains(t, page, "<b>bold</b>")
}

func TestRenderRejectsBadInput(t *testing.T) {
	in := testInput()
	in.Tokens = nil
	_, err := RenderHead(in)
	assert.Error(t, err)

	in = testInput()
	in.Attentions[0][0] = in.Attentions[0][0][:2]
	_, err = RenderHead(in)
	assert.Error(t, err)
}

func TestFormatJSArrayFloat(t *testing.T) {
	got := formatJSArrayFloat([]float64{0.25, math.NaN(), math.Inf(1), math.Inf(-1)})
	assert.Equal(t, "[0.250000,null,1e308,-1e308]", got)
	assert.Equal(t, "[]", formatJSArrayFloat(nil))
}

func TestFormatJSStringsEscapesScriptClose(t *testing.T) {
	got := formatJSStrings([]string{"</script>"})
	assert.False(t, strings.Contains(got, "</script>"))
}
