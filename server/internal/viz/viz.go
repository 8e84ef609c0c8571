// Package viz renders attention weights as self-contained HTML pages.
// No external plotting libraries; the charts are plain canvas JS so a
// saved page opens anywhere and can be archived with its data inline.
package viz

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
)

// Input is everything a rendering needs.
type Input struct {
	ModelName string
	Text      string
	Tokens    []string

	// Attentions is indexed [layer][head][query][key]. Every inner
	// matrix is square with side len(Tokens).
	Attentions [][][][]float64
}

func (in *Input) validate() error {
	if len(in.Tokens) == 0 {
		return fmt.Errorf("no tokens to render")
	}
	if len(in.Attentions) == 0 {
		return fmt.Errorf("no attention weights to render")
	}
	n := len(in.Tokens)
	for l, layer := range in.Attentions {
		if len(layer) == 0 {
			return fmt.Errorf("layer %d has no heads", l)
		}
		for h, head := range layer {
			if len(head) != n {
				return fmt.Errorf("layer %d head %d: got %d rows, want %d", l, h, len(head), n)
			}
		}
	}
	return nil
}

// Render dispatches on the view type.
func Render(view string, in Input) (string, error) {
	switch view {
	case "head":
		return RenderHead(in)
	case "model":
		return RenderModel(in)
	}
	return "", fmt.Errorf("unknown view type %q", view)
}

// RenderHead renders the head view: two token columns joined by
// attention lines, with layer and head selectors and hover isolation
// of a single query token.
func RenderHead(in Input) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	page := fmt.Sprintf(headTemplate,
		html.EscapeString(in.ModelName),
		html.EscapeString(in.ModelName),
		html.EscapeString(truncateText(in.Text, 120)),
		formatJSStrings(in.Tokens),
		formatJSAttentions(in.Attentions),
	)
	return page, nil
}

// RenderModel renders the model view: a grid of thumbnail heatmaps, one
// per head, with layers as rows.
func RenderModel(in Input) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	page := fmt.Sprintf(modelTemplate,
		html.EscapeString(in.ModelName),
		html.EscapeString(in.ModelName),
		html.EscapeString(truncateText(in.Text, 120)),
		len(in.Attentions), len(in.Attentions[0]), len(in.Tokens),
		formatJSStrings(in.Tokens),
		formatJSAttentions(in.Attentions),
	)
	return page, nil
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// formatJSStrings formats a string slice as a JavaScript array.
func formatJSStrings(arr []string) string {
	b, err := json.Marshal(arr)
	if err != nil {
		return "[]"
	}
	// "</script>" inside a token must not terminate the script block.
	return strings.ReplaceAll(string(b), "</", `<\/`)
}

// formatJSAttentions formats [layer][head][q][k] weights as a nested
// JavaScript array.
func formatJSAttentions(attn [][][][]float64) string {
	var sb strings.Builder
	sb.WriteString("[")
	for l, layer := range attn {
		if l > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("[")
		for h, head := range layer {
			if h > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("[")
			for q, row := range head {
				if q > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(formatJSArrayFloat(row))
			}
			sb.WriteString("]")
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

// formatJSArrayFloat formats a float64 slice as a JavaScript array.
func formatJSArrayFloat(arr []float64) string {
	if len(arr) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteString("[")
	for i, v := range arr {
		if i > 0 {
			sb.WriteString(",")
		}
		// Handle NaN and Inf
		if math.IsNaN(v) {
			sb.WriteString("null")
		} else if math.IsInf(v, 1) {
			sb.WriteString("1e308")
		} else if math.IsInf(v, -1) {
			sb.WriteString("-1e308")
		} else {
			sb.WriteString(fmt.Sprintf("%.6f", v))
		}
	}
	sb.WriteString("]")
	return sb.String()
}
