package pcm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/logging"
)

// processorChainImpl implements ProcessorChain.
type processorChainImpl struct {
	processors []Processor
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewProcessorChain creates an empty processor chain.
func NewProcessorChain() ProcessorChain {
	logger := logging.ForService("pcm")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "processor_chain")

	return &processorChainImpl{
		processors: make([]Processor, 0),
		logger:     logger,
	}
}

func (pc *processorChainImpl) AddProcessor(processor Processor) error {
	if processor == nil {
		return errors.Newf("processor cannot be nil").
			Component(ComponentPCM).
			Category(errors.CategoryValidation).
			Build()
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	for _, p := range pc.processors {
		if p.ID() == processor.ID() {
			return errors.Newf("processor already exists in chain").
				Component(ComponentPCM).
				Category(errors.CategoryConflict).
				Context("processor_id", processor.ID()).
				Build()
		}
	}

	pc.processors = append(pc.processors, processor)
	return nil
}

func (pc *processorChainImpl) RemoveProcessor(id string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for i, p := range pc.processors {
		if p.ID() == id {
			pc.processors = append(pc.processors[:i], pc.processors[i+1:]...)
			return nil
		}
	}

	return ErrProcessorNotFound
}

func (pc *processorChainImpl) Process(ctx context.Context, input *Samples) (*Samples, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if len(pc.processors) == 0 {
		return input, nil
	}

	current := input

	for _, processor := range pc.processors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		processed, err := processor.Process(ctx, current)
		if err != nil {
			return nil, errors.New(err).
				Component(ComponentPCM).
				Category(errors.CategoryProcessing).
				Context("processor_id", processor.ID()).
				Build()
		}

		current = processed
	}

	return current, nil
}

func (pc *processorChainImpl) GetProcessors() []Processor {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	processors := make([]Processor, len(pc.processors))
	copy(processors, pc.processors)
	return processors
}
