package ocr

import (
	"context"
	"image"
)

// StaticEngine returns the same result for every image. It backs the "noop"
// engine and stands in for real recognition in tests.
type StaticEngine struct {
	Result Result
	Err    error
}

func NewStaticEngine(result Result) *StaticEngine {
	return &StaticEngine{Result: result}
}

func (s *StaticEngine) Name() string {
	return "static"
}

func (s *StaticEngine) Recognize(ctx context.Context, img image.Image, lang Language) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s.Err != nil {
		return Result{}, s.Err
	}
	return s.Result, nil
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, img image.Image, lang Language) (Result, error)

func (f EngineFunc) Name() string {
	return "func"
}

func (f EngineFunc) Recognize(ctx context.Context, img image.Image, lang Language) (Result, error) {
	return f(ctx, img, lang)
}
