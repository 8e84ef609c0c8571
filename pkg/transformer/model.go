// Package transformer implements a GPT-style decoder-only transformer
// whose forward pass exposes the per-layer, per-head attention weights
// that the visualizer renders.
package transformer

import (
	"fmt"
	"math"

	"github.com/transformerzoo/zoo-server/pkg/tensor"
)

// Config holds the model hyperparameters. It is serialized as the
// checkpoint header, so field names are part of the checkpoint format.
type Config struct {
	VocabSize int `json:"vocab_size"`
	SeqLen    int `json:"seq_len"`
	EmbedDim  int `json:"embed_dim"`
	NumHeads  int `json:"num_heads"`
	NumLayers int `json:"num_layers"`
	FFHidden  int `json:"ff_hidden"`
}

// Validate checks that the configuration describes a buildable model.
func (c *Config) Validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("vocab size must be greater than 0")
	}
	if c.SeqLen <= 0 {
		return fmt.Errorf("seq len must be greater than 0")
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("embed dim must be greater than 0")
	}
	if c.NumHeads <= 0 {
		return fmt.Errorf("num heads must be greater than 0")
	}
	if c.EmbedDim%c.NumHeads != 0 {
		return fmt.Errorf("embed dim (%d) must be divisible by num heads (%d)", c.EmbedDim, c.NumHeads)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("num layers must be greater than 0")
	}
	if c.FFHidden <= 0 {
		return fmt.Errorf("ff hidden must be greater than 0")
	}
	return nil
}

// DefaultConfig returns a small configuration suitable for tests.
func DefaultConfig() Config {
	return Config{
		VocabSize: 512,
		SeqLen:    64,
		EmbedDim:  64,
		NumHeads:  4,
		NumLayers: 2,
		FFHidden:  256,
	}
}

// Output is the result of a forward pass.
type Output struct {
	// Logits has shape (seqLen, vocabSize).
	Logits *tensor.T

	// Attentions holds the post-softmax attention weights,
	// indexed [layer][head], each of shape (seqLen, seqLen).
	Attentions [][]*tensor.T
}

// attention is a multi-head causal self-attention layer.
type attention struct {
	embedDim int
	numHeads int
	headDim  int

	wq, wk, wv, wo *tensor.T
}

func newAttention(embedDim, numHeads int) *attention {
	scale := math.Sqrt(2.0 / float64(embedDim))
	wq := tensor.NewRand(embedDim, embedDim)
	wk := tensor.NewRand(embedDim, embedDim)
	wv := tensor.NewRand(embedDim, embedDim)
	wo := tensor.NewRand(embedDim, embedDim)
	for _, w := range []*tensor.T{wq, wk, wv, wo} {
		d := w.Data()
		for i := range d {
			d[i] *= scale
		}
	}
	return &attention{
		embedDim: embedDim,
		numHeads: numHeads,
		headDim:  embedDim / numHeads,
		wq:       wq,
		wk:       wk,
		wv:       wv,
		wo:       wo,
	}
}

// forward computes the attention output for x (seqLen, embedDim) and
// returns it together with the per-head attention weights.
func (a *attention) forward(x *tensor.T) (*tensor.T, []*tensor.T) {
	seqLen := x.Shape()[0]

	q := tensor.MatMul(x, a.wq)
	k := tensor.MatMul(x, a.wk)
	v := tensor.MatMul(x, a.wv)

	concat := tensor.New(seqLen, a.embedDim)
	weights := make([]*tensor.T, a.numHeads)

	for h := 0; h < a.numHeads; h++ {
		qh := sliceHead(q, h, a.headDim)
		kh := sliceHead(k, h, a.headDim)
		vh := sliceHead(v, h, a.headDim)

		scores := tensor.MatMul(qh, tensor.Transpose(kh))
		scores = tensor.Scale(scores, 1.0/math.Sqrt(float64(a.headDim)))

		// Causal mask: a position may not attend to later positions.
		for i := 0; i < seqLen; i++ {
			for j := i + 1; j < seqLen; j++ {
				scores.Set(-1e9, i, j)
			}
		}

		w := tensor.Softmax(scores)
		weights[h] = w

		headOut := tensor.MatMul(w, vh)
		for i := 0; i < seqLen; i++ {
			for j := 0; j < a.headDim; j++ {
				concat.Set(headOut.At(i, j), i, h*a.headDim+j)
			}
		}
	}

	return tensor.MatMul(concat, a.wo), weights
}

// sliceHead extracts the columns belonging to head h.
func sliceHead(x *tensor.T, h, headDim int) *tensor.T {
	seqLen := x.Shape()[0]
	out := tensor.New(seqLen, headDim)
	for i := 0; i < seqLen; i++ {
		for j := 0; j < headDim; j++ {
			out.Set(x.At(i, h*headDim+j), i, j)
		}
	}
	return out
}

// layerNorm normalizes activations across features for each position.
type layerNorm struct {
	dim         int
	eps         float64
	gamma, beta *tensor.T
}

func newLayerNorm(dim int) *layerNorm {
	gamma := tensor.New(dim)
	beta := tensor.New(dim)
	for i := 0; i < dim; i++ {
		gamma.Set(1.0, i)
	}
	return &layerNorm{dim: dim, eps: 1e-5, gamma: gamma, beta: beta}
}

func (ln *layerNorm) forward(x *tensor.T) *tensor.T {
	seqLen, features := x.Shape()[0], x.Shape()[1]
	out := tensor.New(seqLen, features)
	for i := 0; i < seqLen; i++ {
		mean := 0.0
		for j := 0; j < features; j++ {
			mean += x.At(i, j)
		}
		mean /= float64(features)

		variance := 0.0
		for j := 0; j < features; j++ {
			diff := x.At(i, j) - mean
			variance += diff * diff
		}
		variance /= float64(features)

		std := math.Sqrt(variance + ln.eps)
		for j := 0; j < features; j++ {
			normalized := (x.At(i, j) - mean) / std
			out.Set(normalized*ln.gamma.At(j)+ln.beta.At(j), i, j)
		}
	}
	return out
}

// feedForward is the position-wise two-layer MLP with GELU activation.
type feedForward struct {
	w1, b1 *tensor.T
	w2, b2 *tensor.T
}

func newFeedForward(embedDim, hiddenDim int) *feedForward {
	return &feedForward{
		w1: tensor.NewRand(embedDim, hiddenDim),
		b1: tensor.New(hiddenDim),
		w2: tensor.NewRand(hiddenDim, embedDim),
		b2: tensor.New(embedDim),
	}
}

func (ff *feedForward) forward(x *tensor.T) *tensor.T {
	hidden := addBias(tensor.MatMul(x, ff.w1), ff.b1)
	hidden = tensor.GELU(hidden)
	return addBias(tensor.MatMul(hidden, ff.w2), ff.b2)
}

// block is a pre-norm transformer block:
//
//	x = x + attention(layerNorm(x))
//	x = x + feedForward(layerNorm(x))
type block struct {
	attn *attention
	ln1  *layerNorm
	ff   *feedForward
	ln2  *layerNorm
}

func newBlock(c Config) *block {
	return &block{
		attn: newAttention(c.EmbedDim, c.NumHeads),
		ln1:  newLayerNorm(c.EmbedDim),
		ff:   newFeedForward(c.EmbedDim, c.FFHidden),
		ln2:  newLayerNorm(c.EmbedDim),
	}
}

func (b *block) forward(x *tensor.T) (*tensor.T, []*tensor.T) {
	attended, weights := b.attn.forward(b.ln1.forward(x))
	x = tensor.Add(x, attended)
	x = tensor.Add(x, b.ff.forward(b.ln2.forward(x)))
	return x, weights
}

// Model is a decoder-only transformer.
type Model struct {
	config Config

	tokenEmbed *tensor.T
	posEmbed   *tensor.T
	blocks     []*block
	lnFinal    *layerNorm
	lmHead     *tensor.T
}

// New creates a model with randomly initialized weights.
func New(c Config) (*Model, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	blocks := make([]*block, c.NumLayers)
	for i := range blocks {
		blocks[i] = newBlock(c)
	}
	return &Model{
		config:     c,
		tokenEmbed: tensor.NewRand(c.VocabSize, c.EmbedDim),
		posEmbed:   tensor.NewRand(c.SeqLen, c.EmbedDim),
		blocks:     blocks,
		lnFinal:    newLayerNorm(c.EmbedDim),
		lmHead:     tensor.NewRand(c.EmbedDim, c.VocabSize),
	}, nil
}

// Config returns the model configuration.
func (m *Model) Config() Config {
	return m.config
}

// Forward runs the forward pass for the given token IDs and collects
// the attention weights of every layer and head.
func (m *Model) Forward(ids []int) (*Output, error) {
	seqLen := len(ids)
	if seqLen == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if seqLen > m.config.SeqLen {
		return nil, fmt.Errorf("sequence length %d exceeds maximum %d", seqLen, m.config.SeqLen)
	}

	x := tensor.New(seqLen, m.config.EmbedDim)
	for i, id := range ids {
		if id < 0 || id >= m.config.VocabSize {
			return nil, fmt.Errorf("token ID %d out of vocabulary range [0,%d)", id, m.config.VocabSize)
		}
		for j := 0; j < m.config.EmbedDim; j++ {
			x.Set(m.tokenEmbed.At(id, j)+m.posEmbed.At(i, j), i, j)
		}
	}

	attentions := make([][]*tensor.T, len(m.blocks))
	for i, b := range m.blocks {
		var weights []*tensor.T
		x, weights = b.forward(x)
		attentions[i] = weights
	}

	x = m.lnFinal.forward(x)

	return &Output{
		Logits:     tensor.MatMul(x, m.lmHead),
		Attentions: attentions,
	}, nil
}

func addBias(x, bias *tensor.T) *tensor.T {
	seqLen, features := x.Shape()[0], x.Shape()[1]
	out := x.Clone()
	for i := 0; i < seqLen; i++ {
		for j := 0; j < features; j++ {
			out.Set(out.At(i, j)+bias.At(j), i, j)
		}
	}
	return out
}
