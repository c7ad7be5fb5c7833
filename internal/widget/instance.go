package widget

import (
	"apim-analytics-backend/internal/dto"
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const listenerBuffer = 8

// Instance runs one Controller on its own event loop. Events are queued
// without bound and executed one at a time in arrival order.
type Instance struct {
	ID         string
	WidgetName string
	Language   string

	controller *Controller

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	closing bool

	viewMu       sync.RWMutex
	view         dto.WidgetState
	listeners    map[int]chan dto.WidgetState
	nextListener int
}

func NewInstance(id, widgetName, language string, host Host) *Instance {
	inst := &Instance{
		ID:         id,
		WidgetName: widgetName,
		Language:   language,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		listeners:  make(map[int]chan dto.WidgetState),
	}
	inst.controller = NewController(host, id, widgetName, func(fn func()) { inst.Post(fn) })
	inst.controller.OnChange(inst.publish)
	inst.view = inst.controller.View()
	return inst
}

// Start launches the event loop and queues the mount.
func (i *Instance) Start(ctx context.Context) {
	go i.run()
	i.Do(func(c *Controller) { c.Mount(ctx, i.Language) })
}

// Post queues fn. It reports false once the instance is closing.
func (i *Instance) Post(fn func()) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closing {
		return false
	}
	i.queue = append(i.queue, fn)
	i.signal()
	return true
}

// Do queues fn with access to the controller.
func (i *Instance) Do(fn func(c *Controller)) bool {
	return i.Post(func() { fn(i.controller) })
}

func (i *Instance) signal() {
	select {
	case i.wake <- struct{}{}:
	default:
	}
}

func (i *Instance) run() {
	defer close(i.done)
	for range i.wake {
		for {
			fn, closing, ok := i.next()
			if !ok {
				if closing {
					return
				}
				break
			}
			i.execute(fn)
		}
	}
}

func (i *Instance) next() (func(), bool, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.queue) == 0 {
		return nil, i.closing, false
	}
	fn := i.queue[0]
	i.queue[0] = nil
	i.queue = i.queue[1:]
	return fn, i.closing, true
}

func (i *Instance) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("instance", i.ID).Msg("Recovered from panic in widget event")
		}
	}()
	fn()
}

// Close queues the unmount, waits for the loop to drain and closes every
// view listener.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	if i.closing {
		i.mu.Unlock()
		<-i.done
		return nil
	}
	i.queue = append(i.queue, i.controller.Unmount)
	i.closing = true
	i.signal()
	i.mu.Unlock()

	select {
	case <-i.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	i.viewMu.Lock()
	for id, ch := range i.listeners {
		close(ch)
		delete(i.listeners, id)
	}
	i.viewMu.Unlock()
	return nil
}

// View returns the state as of the last completed event.
func (i *Instance) View() dto.WidgetState {
	i.viewMu.RLock()
	defer i.viewMu.RUnlock()
	return i.view
}

// Listen streams every view published after the call. Slow listeners lose
// intermediate views, never the latest one.
func (i *Instance) Listen() (<-chan dto.WidgetState, func()) {
	i.viewMu.Lock()
	defer i.viewMu.Unlock()
	id := i.nextListener
	i.nextListener++
	ch := make(chan dto.WidgetState, listenerBuffer)
	i.listeners[id] = ch
	return ch, func() {
		i.viewMu.Lock()
		defer i.viewMu.Unlock()
		if ch, ok := i.listeners[id]; ok {
			close(ch)
			delete(i.listeners, id)
		}
	}
}

func (i *Instance) publish() {
	view := i.controller.View()
	i.viewMu.Lock()
	defer i.viewMu.Unlock()
	i.view = view
	for _, ch := range i.listeners {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
