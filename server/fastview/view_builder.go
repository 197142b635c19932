package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder is a pattern for constructing one or more views that use a common view-model.
// The main responsibility for ViewBuilder is Build(): building views and wiring up chans/context.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel                                        // The source type of data, e.g. session frames
	viewModelFn func(DataModel) ViewModel                               // Converts input data models to view models.
	builderFns  []func(<-chan struct{}, <-chan ViewModel) ViewComponent // The set of functions for building views.
	done        <-chan struct{}                                         // Okay if nil
	batchRate   time.Duration                                           // Zero disables batching.
}

// NewViewBuilder returns a builder for a given data-model and view-model.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel creates a new channel derived from the passed function to convert
// items to the target view-model data type.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view from an input view-model channel and a 'done' channel for cleanup.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view to the list of views to build.
// They are returned in the same order as built when Build() is called.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithContext ensures that all downstream channels are closed when context is cancelled.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// WithBatching coalesces the views' updates over the given period, keeping only the
// latest update per element id.
func (vb *ViewBuilder[DataModel, ViewModel]) WithBatching(
	rate time.Duration,
) *ViewBuilder[DataModel, ViewModel] {
	vb.batchRate = rate
	return vb
}

// ErrNoViews is returned when Build() is called before the caller has added any views.
var ErrNoViews error = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build() is called before WithModel() has been called.
var ErrNoModel error = errors.New("no model specified: WithModel must be called")

// Build executes the stored builders, connecting the view-model channel to every view,
// and returns the views together with their merged ele-update channel.
// Each view receives every view-model, so views must not block for long.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (
	views []ViewComponent,
	updates <-chan []EleUpdate,
	err error,
) {
	if len(vb.builderFns) == 0 {
		return nil, nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	for i, build := range vb.builderFns {
		views = append(views, build(vb.done, vmChans[i]))
	}

	updates = FanIn(vb.done, views...)
	if vb.batchRate > 0 {
		updates = Batchify(vb.done, updates, vb.batchRate)
	}
	return
}

// FanIn merges the views' ele-update channels into one.
func FanIn(
	done <-chan struct{},
	views ...ViewComponent,
) <-chan []EleUpdate {
	inputs := make([]<-chan []EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return channerics.Merge(done, inputs...)
}

// Batchify batches within the passed time frame before sending, over-writing previously
// received values for the same ele-id, so only the latest value per element is sent.
// A partial batch is flushed once the source goes quiet for a full period.
func Batchify(
	done <-chan struct{},
	source <-chan []EleUpdate,
	rate time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		data := map[string]EleUpdate{}
		order := []string{}
		flush := func() bool {
			batch := make([]EleUpdate, 0, len(order))
			for _, id := range order {
				batch = append(batch, data[id])
			}
			select {
			case output <- batch:
				data = map[string]EleUpdate{}
				order = order[:0]
				return true
			case <-done:
				return false
			}
		}

		timer := time.NewTimer(rate)
		defer timer.Stop()
		last := time.Now()
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					if len(order) > 0 {
						flush()
					}
					return
				}
				for _, update := range updates {
					if _, seen := data[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					data[update.EleId] = update
				}
				if time.Since(last) > rate && len(order) > 0 {
					if !flush() {
						return
					}
					last = time.Now()
				}
			case <-timer.C:
				if len(order) > 0 && time.Since(last) > rate {
					if !flush() {
						return
					}
					last = time.Now()
				}
				timer.Reset(rate)
			}
		}
	}()

	return output
}
