package transformer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/transformerzoo/zoo-server/pkg/tensor"
)

// Checkpoint format: a uint32 little-endian header length, a JSON
// Config header, then every weight tensor as raw little-endian float64
// in a fixed order (embeddings, per-block attention/norm/FFN weights,
// final norm, LM head).

// A Config header is well under a kilobyte; anything bigger means the
// file is not a checkpoint, so reject it before allocating.
const maxHeaderLen = 4 << 10

// Save writes the model weights to path.
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	defer f.Close()

	header, err := json.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(header))); err != nil {
		return fmt.Errorf("write header length: %w", err)
	}
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range m.weights() {
		if err := binary.Write(f, binary.LittleEndian, t.Data()); err != nil {
			return fmt.Errorf("write weights: %w", err)
		}
	}
	return nil
}

// Load reads a model from a checkpoint file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if headerLen == 0 || headerLen > maxHeaderLen {
		return nil, fmt.Errorf("invalid header length %d", headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var c Config
	if err := json.Unmarshal(header, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	m, err := New(c)
	if err != nil {
		return nil, err
	}
	for _, t := range m.weights() {
		if err := binary.Read(f, binary.LittleEndian, t.Data()); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}
	return m, nil
}

// weights returns every weight tensor in checkpoint order.
func (m *Model) weights() []*tensor.T {
	ts := []*tensor.T{m.tokenEmbed, m.posEmbed}
	for _, b := range m.blocks {
		ts = append(ts,
			b.attn.wq, b.attn.wk, b.attn.wv, b.attn.wo,
			b.ln1.gamma, b.ln1.beta,
			b.ff.w1, b.ff.b1, b.ff.w2, b.ff.b2,
			b.ln2.gamma, b.ln2.beta,
		)
	}
	return append(ts, m.lnFinal.gamma, m.lnFinal.beta, m.lmHead)
}
