// Package behavior implements the registry of user behaviors driven by the
// runtime's update pass.
//
// A behavior is started exactly once, when it is registered, and is then
// updated once per pass in registration order for as long as the registry
// lives. There is no way to unregister a behavior.
package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/containerd/errdefs"

	"github.com/comalice/framecore/internal/logging"
)

// Behavior is a user object with start and per-frame update hooks.
type Behavior interface {
	Start()
	Update()
}

var (
	// ErrTypeMismatch is returned by Latest when the most recent behavior is
	// not of the requested type.
	ErrTypeMismatch = fmt.Errorf("behavior type mismatch: %w", errdefs.ErrFailedPrecondition)

	// ErrEmpty is returned by Latest on an empty registry.
	ErrEmpty = fmt.Errorf("no behavior registered: %w", errdefs.ErrNotFound)

	// ErrNil is returned when registering a nil behavior.
	ErrNil = fmt.Errorf("nil behavior: %w", errdefs.ErrInvalidArgument)
)

// FaultPolicy decides what UpdateAll does after a behavior panics.
type FaultPolicy int

const (
	// FaultContinue isolates the faulty behavior, keeps dispatching and
	// reports every fault of the pass together.
	FaultContinue FaultPolicy = iota
	// FaultAbort stops the pass at the first fault.
	FaultAbort
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultContinue:
		return "continue"
	case FaultAbort:
		return "abort"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", int(p))
	}
}

// ParsePolicy accepts "continue" and "abort".
func ParsePolicy(s string) (FaultPolicy, error) {
	switch s {
	case "continue":
		return FaultContinue, nil
	case "abort":
		return FaultAbort, nil
	}
	return 0, fmt.Errorf("unknown fault policy %q: %w", s, errdefs.ErrInvalidArgument)
}

// Phase names the hook that faulted.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseUpdate Phase = "update"
)

// Fault describes a panic raised by a behavior hook.
type Fault struct {
	Index int    // position in registration order, -1 if never registered
	Type  string // dynamic type of the behavior
	Phase Phase
	Value any // recovered panic value
	Stack []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("behavior %d (%s) %s: %v", f.Index, f.Type, f.Phase, f.Value)
}

// Unwrap exposes the panic value when it is an error, and classes every
// fault as internal.
func (f *Fault) Unwrap() []error {
	errs := []error{errdefs.ErrInternal}
	if err, ok := f.Value.(error); ok {
		errs = append(errs, err)
	}
	return errs
}

// Hooks observe registry activity. Any field may be nil.
type Hooks struct {
	Registered func(total int)
	Fault      func(f *Fault)
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy sets the fault policy. The default is FaultContinue.
func WithPolicy(p FaultPolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithLogger sets the logger used to report faults.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) Option {
	return func(r *Registry) {
		r.hooks = h
	}
}

type entry struct {
	b    Behavior
	name string
}

// Registry is an ordered collection of started behaviors. Registration is
// safe from any goroutine; UpdateAll is meant to be called from the loop
// goroutine only.
type Registry struct {
	policy FaultPolicy
	log    *slog.Logger
	hooks  Hooks

	mu      sync.Mutex
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the configured fault policy.
func (r *Registry) Policy() FaultPolicy {
	return r.policy
}

// Register starts b and appends it to r. The value returned is b itself, so
// callers keep their concrete type without any lookup. If Start panics the
// behavior is not registered and a *Fault is returned.
func Register[T Behavior](r *Registry, b T) (T, error) {
	if err := r.Add(b); err != nil {
		var zero T
		return zero, err
	}
	return b, nil
}

// Add is the untyped form of Register.
func (r *Registry) Add(b Behavior) error {
	if b == nil || isNilPointer(b) {
		return ErrNil
	}
	name := typeName(b)

	if f := call(b.Start, -1, name, PhaseStart); f != nil {
		r.report(f)
		return f
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry{b: b, name: name})
	total := len(r.entries)
	r.mu.Unlock()

	r.log.Debug("behavior registered", "type", name, "index", total-1)
	if r.hooks.Registered != nil {
		r.hooks.Registered(total)
	}
	return nil
}

// Latest returns the most recently registered behavior as a T.
func Latest[T Behavior](r *Registry) (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return zero, ErrEmpty
	}
	last := r.entries[len(r.entries)-1]
	v, ok := last.b.(T)
	if !ok {
		return zero, fmt.Errorf("latest is %s, want %s: %w", last.name, reflect.TypeFor[T](), ErrTypeMismatch)
	}
	return v, nil
}

// Len returns the number of registered behaviors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// UpdateAll calls Update on every behavior once, in registration order.
// Behaviors registered by an Update call join from the next pass.
func (r *Registry) UpdateAll() error {
	r.mu.Lock()
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	var faults []error
	for i, e := range entries {
		f := call(e.b.Update, i, e.name, PhaseUpdate)
		if f == nil {
			continue
		}
		r.report(f)
		if r.policy == FaultAbort {
			return f
		}
		faults = append(faults, f)
	}
	return errors.Join(faults...)
}

func (r *Registry) report(f *Fault) {
	r.log.Error("behavior fault",
		"index", f.Index,
		"type", f.Type,
		"phase", string(f.Phase),
		"panic", fmt.Sprint(f.Value),
		"policy", r.policy.String(),
	)
	if r.hooks.Fault != nil {
		r.hooks.Fault(f)
	}
}

func call(fn func(), index int, name string, phase Phase) (f *Fault) {
	defer func() {
		if v := recover(); v != nil {
			f = &Fault{Index: index, Type: name, Phase: phase, Value: v, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

func typeName(b Behavior) string {
	return reflect.TypeOf(b).String()
}

func isNilPointer(b Behavior) bool {
	v := reflect.ValueOf(b)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
