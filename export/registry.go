package export

import (
	"fmt"
	"sort"
	"sync"
)

// EncoderRegistry stores encoders by format.
type EncoderRegistry struct {
	mu       sync.RWMutex
	encoders map[Format]Encoder
}

// NewEncoderRegistry creates an empty registry.
func NewEncoderRegistry() *EncoderRegistry {
	return &EncoderRegistry{encoders: make(map[Format]Encoder)}
}

// Register adds an encoder for a format.
func (r *EncoderRegistry) Register(format Format, encoder Encoder) error {
	format = NormalizeFormat(format)
	if format == "" {
		return NewError(KindValidation, "encoder format is required", nil)
	}
	if encoder == nil {
		return NewError(KindValidation, "encoder is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.encoders[format]; exists {
		return NewError(KindValidation, fmt.Sprintf("encoder for %q already registered", format), nil)
	}
	r.encoders[format] = encoder
	return nil
}

// Resolve returns the encoder for the format.
func (r *EncoderRegistry) Resolve(format Format) (Encoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	encoder, ok := r.encoders[NormalizeFormat(format)]
	return encoder, ok
}

// Formats lists registered formats in sorted order.
func (r *EncoderRegistry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.encoders))
	for format := range r.encoders {
		out = append(out, format)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
