package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"finitefield.org/nutricart/internal/domain"
)

// Encode serializes lines into the persisted snapshot format: a JSON array of lines. An empty
// cart encodes as "[]".
func Encode(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("cart: encode snapshot: %w", err)
	}
	return raw, nil
}

// Decode parses a persisted snapshot. Lines with a non-positive quantity are dropped and repeated
// product ids are merged into the first occurrence so the result satisfies the cart invariants.
func Decode(raw []byte) ([]domain.CartLine, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var decoded []domain.CartLine
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("cart: decode snapshot: %w", err)
	}

	out := make([]domain.CartLine, 0, len(decoded))
	index := make(map[int64]int, len(decoded))
	for _, line := range decoded {
		if line.Quantity < 1 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// TotalItemCount sums quantities.
func TotalItemCount(lines []domain.CartLine) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// TotalValue sums price × quantity.
func TotalValue(lines []domain.CartLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
