// Package testutil provides behaviors that record how the runtime drives
// them, so the same assertions can run against the behavior registry alone
// or against a full runtime loop.
package testutil

import (
	"fmt"
	"sync"
)

// Counter counts its hooks. It also records whether any Update ran before
// Start.
type Counter struct {
	Counter int

	mu           sync.Mutex
	starts       int
	updates      int
	updateBefore bool
}

func (c *Counter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
}

func (c *Counter) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.starts == 0 {
		c.updateBefore = true
	}
	c.updates++
	c.Counter++
}

// Starts returns how many times Start ran.
func (c *Counter) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

// Updates returns how many times Update ran.
func (c *Counter) Updates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

// UpdatedBeforeStart reports whether Update ever ran before Start.
func (c *Counter) UpdatedBeforeStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateBefore
}

// Trace is a shared, ordered log of hook calls.
type Trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *Trace) add(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, s)
}

// Calls returns a copy of the log.
func (t *Trace) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// Recorder appends "<name>.start" and "<name>.update" to a Trace.
type Recorder struct {
	Name  string
	Trace *Trace
}

func (r *Recorder) Start()  { r.Trace.add(r.Name + ".start") }
func (r *Recorder) Update() { r.Trace.add(r.Name + ".update") }

// Panicker panics in Start when PanicOnStart is set, and in Update once it
// has been updated PanicAfter times.
type Panicker struct {
	PanicOnStart bool
	PanicAfter   int
	Value        any

	updates int
}

func (p *Panicker) Start() {
	if p.PanicOnStart {
		panic(p.value())
	}
}

func (p *Panicker) Update() {
	if p.updates >= p.PanicAfter {
		panic(p.value())
	}
	p.updates++
}

func (p *Panicker) value() any {
	if p.Value != nil {
		return p.Value
	}
	return fmt.Sprintf("panicker after %d updates", p.updates)
}

// Func adapts two functions to a behavior. Nil functions do nothing.
type Func struct {
	OnStart  func()
	OnUpdate func()
}

func (f Func) Start() {
	if f.OnStart != nil {
		f.OnStart()
	}
}

func (f Func) Update() {
	if f.OnUpdate != nil {
		f.OnUpdate()
	}
}
