package pcm

import "github.com/auralis/auralis-core/internal/errors"

var (
	ErrInvalidFormat  = errors.Newf("invalid audio format").Component(ComponentPCM).Category(errors.CategoryValidation).Build()
	ErrBufferTooSmall = errors.Newf("buffer too small for requested size").Component(ComponentPCM).Category(errors.CategoryValidation).Build()
	ErrProcessorFailed = errors.Newf("processor failed").Component(ComponentPCM).Category(errors.CategoryState).Build()
	ErrSliceOutOfRange = errors.Newf("slice range out of bounds").Component(ComponentPCM).Category(errors.CategoryValidation).Build()
)

// ErrProcessorNotFound is returned when a processor id is not present in a chain.
var ErrProcessorNotFound = errors.Newf("processor not found").
	Component(ComponentPCM).
	Category(errors.CategoryNotFound).
	Context("resource", "processor").
	Build()
