package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

// Splitter copies every value of its input to Total outputs.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	mainStep      *model.Step[I]
	splittedSteps []*model.Step[I]
	bufferSize    int
	Total         int
}

// Get returns the next unused output of the splitter.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer func() {
		s.currIdx++
		s.mu.Unlock()
	}()
	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	return s.splittedSteps[s.currIdx], true
}

// SplitterFn decides whether a value goes to the output it is attached to.
type SplitterFn[I any] func(input I) (bool, error)

func newSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, opts []SplitterOption[I]) (*Splitter[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}
	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	splitter := &Splitter[I]{
		Total:    total,
		mainStep: newStep[I](name, model.StepInfo{Type: model.SplitterStepType}, nil),
	}
	for _, opt := range opts {
		opt(splitter)
	}
	if splitter.bufferSize <= 0 {
		splitter.bufferSize = 1
	}
	splitter.mainStep.Details.BufferSize = splitter.bufferSize

	splitter.splittedSteps = make([]*model.Step[I], total)
	for i := range splitter.splittedSteps {
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: &model.StepInfo{
				Type:       model.SplitterStepType,
				Name:       name,
				Concurrent: 1,
			},
			Output: make(chan I),
		}
	}

	for _, opt := range p.opts {
		err := opt.PrepareSplitter(parentDetails(input), splitter.mainStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before splitter function")
		}
	}

	return splitter, nil
}

// forwardSplit moves values from buf to the output of the splitter at idx,
// keeping only the ones accepted by filter when it is set.
func (s *Splitter[I]) forwardSplit(ctx context.Context, idx int, buf <-chan I, filter SplitterFn[I]) error {
	output := s.splittedSteps[idx].Output
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case elem, ok := <-buf:
			if !ok {
				return nil
			}
			if filter != nil {
				keep, err := filter(elem)
				if err != nil {
					return errors.Wrapf(err, "unable to run splitter function %d", idx)
				}
				if !keep {
					continue
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case output <- elem:
			}
		}
	}
}

// distribute copies every value of input to all the buffers.
func (s *Splitter[I]) distribute(ctx context.Context, p *Pipeline, input *model.Step[I], buffers []chan I) error {
	parent := parentDetails(input)
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()
			for _, buf := range buffers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case buf <- entry:
				}
			}
			endFn := time.Since(startFn)
			endIter := time.Since(startIter) - endFn

			for _, opt := range p.opts {
				err := opt.OnSplitterOutput(parent, s.mainStep.Details, endIter, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on splitter output function")
				}
			}
		}
	}
}

func (s *Splitter[I]) run(ctx context.Context, p *Pipeline, input *model.Step[I], filters []SplitterFn[I]) error {
	buffers := make([]chan I, s.Total)
	for i := range buffers {
		buffers[i] = make(chan I, s.bufferSize)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	for i := range buffers {
		idx := i
		var filter SplitterFn[I]
		if filters != nil {
			filter = filters[idx]
		}
		errGrp.Go(func() error {
			defer close(s.splittedSteps[idx].Output)

			return s.forwardSplit(dCtx, idx, buffers[idx], filter)
		})
	}
	errGrp.Go(func() error {
		defer func() {
			for _, buf := range buffers {
				close(buf)
			}
		}()

		return s.distribute(dCtx, p, input, buffers)
	})

	return errGrp.Wait()
}

func addSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, filters []SplitterFn[I],
	opts []SplitterOption[I],
) (*Splitter[I], error) {
	splitter, err := newSplitter(p, name, input, total, opts)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))
	p.goFn = append(p.goFn, func(ctx context.Context) {
		defer close(errC)
		err := splitter.run(ctx, p, input, filters)
		if err != nil {
			errC <- err
		}
	})

	return splitter, nil
}

// AddSplitter adds a splitter copying every value of input to total outputs.
func AddSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	return addSplitter(p, name, input, total, nil, opts)
}

// AddSplitterFn adds a splitter with one output per function. A value goes to
// an output when its function returns true.
func AddSplitterFn[I any](p *Pipeline, name string, input *model.Step[I], fns []SplitterFn[I], opts ...SplitterOption[I]) (*Splitter[I], error) {
	return addSplitter(p, name, input, len(fns), fns, opts)
}
