//go:build !cgo

package embed

import (
	"context"
	"errors"
)

// ONNXEmbedder stub for builds without CGO; see onnx.go for the real
// implementation.
type ONNXEmbedder struct{}

// NewONNXEmbedder reports that ONNX Runtime is unavailable in this build.
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errors.New("embed: ONNX backend requires CGO and onnxruntime; build with CGO_ENABLED=1")
}

func (e *ONNXEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embed: ONNX backend unavailable in this build")
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
