package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet  = errors.New("p must be set")
	ErrInputMustBeSet     = errors.New("input must be set")
	ErrSplitterTotal      = errors.New("total must be greater than 0")
	ErrPipelineAlreadyRun = errors.New("pipeline already ran")
)

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

// errorChan is the error channel of one step, named after it.
type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors fans in the error channels of every step, prefixing each error
// with the step name. Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup
	// a channel can carry more than one error, readers must drain out.
	out := make(chan error, len(cs))

	forward := func(c *errorChan) {
		defer wg.Done()
		if c.c == nil {
			return
		}
		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}
	wg.Add(len(cs))
	for _, c := range cs {
		go forward(c)
	}

	// close out once every forwarder is done; must start after wg.Add.
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
