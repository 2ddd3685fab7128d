package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Router distributes Msgs to several named sinks.
type Router interface {
	AddSink(string, Sink, bool)
	RemoveSink(string) error
	Sink(string) (Sink, bool, error)
	Sinks() []string
	EnableSink(string, bool) error
	Write(Msg) error
	Flush()
}

type sink struct {
	Sink
	active bool
}

// DefaultRouter is the standard manager for audio sinks.
type DefaultRouter struct {
	sync.RWMutex // for map & variables
	sinks        map[string]*sink
}

// NewDefaultRouter returns an initialized default router for audio sinks.
func NewDefaultRouter() *DefaultRouter {
	return &DefaultRouter{
		sinks: make(map[string]*sink),
	}
}

// Write will write the Msg to all enabled audio sinks. A failing sink does
// not keep the Msg from the others; all failures are returned together.
func (r *DefaultRouter) Write(msg Msg) error {
	r.RLock()
	defer r.RUnlock()

	var errs []error
	for name, s := range r.sinks {
		if !s.active {
			continue
		}
		if err := s.Write(msg); err != nil {
			errs = append(errs, &SinkError{Name: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// AddSink adds an audio device which satisfies the Sink interface. When marked
// as active, incoming audio Msgs will be written to this device.
func (r *DefaultRouter) AddSink(name string, s Sink, active bool) {
	r.Lock()
	defer r.Unlock()
	r.sinks[name] = &sink{s, active}
}

// RemoveSink removes an audio sink.
func (r *DefaultRouter) RemoveSink(name string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.sinks[name]; !ok {
		return fmt.Errorf("unknown sink %s", name)
	}
	delete(r.sinks, name)
	return nil
}

// Sink returns the requested audio Sink and whether it is enabled.
func (r *DefaultRouter) Sink(name string) (Sink, bool, error) {
	r.RLock()
	defer r.RUnlock()
	s, ok := r.sinks[name]
	if !ok {
		return nil, false, fmt.Errorf("unknown sink %s", name)
	}
	return s.Sink, s.active, nil
}

// Sinks returns the sorted names of all sinks.
func (r *DefaultRouter) Sinks() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnableSink will mark the audio Sink as active, so that incoming audio
// Msgs will be written to it.
func (r *DefaultRouter) EnableSink(name string, active bool) error {
	r.Lock()
	defer r.Unlock()
	s, ok := r.sinks[name]
	if !ok {
		return fmt.Errorf("unknown sink %s", name)
	}
	if s.active == active {
		return nil
	}
	s.active = active
	if s.active {
		return s.Start()
	}
	return s.Stop()
}

// Flush flushes the buffers of all active sinks.
func (r *DefaultRouter) Flush() {
	r.RLock()
	defer r.RUnlock()
	for _, s := range r.sinks {
		if s.active {
			s.Flush()
		}
	}
}

// SinkError is returned when data could not be written to a particular
// audio Sink.
type SinkError struct {
	Name string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
