// Package hk is a periodic-task registrar: named callbacks are
// registered with an initial interval and reschedule themselves by
// returning the next interval. Adapted from the run/ctrlCh/ticker shape
// of aistore's transport stream collector (transport/collect.go),
// generalized from stream idle-teardown to arbitrary named upkeep —
// here, PipeHandler's periodic reap of finished PipeThreads (spec.md
// §4.8 "cleans up any PipeThread whose run-flag is false").
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"container/heap"
	"time"

	"github.com/arcbridge/pipebridge/cmn/nlog"
)

// Func runs one housekeeping pass and returns the delay until its next
// run. Returning <=0 unregisters it.
type Func func(now time.Time) time.Duration

type entry struct {
	name  string
	f     Func
	due   time.Time
	index int
}

type ctrl struct {
	e      *entry
	remove bool
}

// entryHeap is a min-heap on due time.
type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x any)         { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Housekeeper drives a set of registered Funcs on their own schedules
// from a single goroutine.
type Housekeeper struct {
	byName map[string]*entry
	heap   entryHeap
	ctrlCh chan ctrl
	stopCh chan struct{}
	doneCh chan struct{}
}

func New() *Housekeeper {
	return &Housekeeper{
		byName: make(map[string]*entry),
		ctrlCh: make(chan ctrl, 16),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Reg registers f to run first after delay, and thereafter after
// whatever delay it returns each time. Re-registering the same name
// replaces the prior registration.
func (hk *Housekeeper) Reg(name string, f Func, delay time.Duration) {
	hk.ctrlCh <- ctrl{e: &entry{name: name, f: f, due: time.Now().Add(delay)}}
}

// Unreg removes a named task; safe to call even if never registered.
func (hk *Housekeeper) Unreg(name string) {
	hk.ctrlCh <- ctrl{e: &entry{name: name}, remove: true}
}

func (hk *Housekeeper) Run() {
	const idleTick = time.Second
	defer close(hk.doneCh)

	for {
		wait := idleTick
		if hk.heap.Len() > 0 {
			if d := time.Until(hk.heap[0].due); d < wait {
				wait = d
			}
		}
		timer := time.NewTimer(wait)
		select {
		case c := <-hk.ctrlCh:
			hk.apply(c)
		case now := <-timer.C:
			hk.fire(now)
		case <-hk.stopCh:
			timer.Stop()
			return
		}
		timer.Stop()
	}
}

func (hk *Housekeeper) Stop() {
	close(hk.stopCh)
	<-hk.doneCh
}

func (hk *Housekeeper) apply(c ctrl) {
	if prev, ok := hk.byName[c.e.name]; ok {
		heap.Remove(&hk.heap, prev.index)
		delete(hk.byName, c.e.name)
	}
	if c.remove {
		return
	}
	hk.byName[c.e.name] = c.e
	heap.Push(&hk.heap, c.e)
}

func (hk *Housekeeper) fire(now time.Time) {
	for hk.heap.Len() > 0 && !hk.heap[0].due.After(now) {
		e := heap.Pop(&hk.heap).(*entry)
		delete(hk.byName, e.name)
		next := safeRun(e, now)
		if next > 0 {
			e.due = now.Add(next)
			hk.byName[e.name] = e
			heap.Push(&hk.heap, e)
		}
	}
}

func safeRun(e *entry, now time.Time) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			nlog.Errorf("hk: task %q panicked: %v", e.name, r)
			next = 0
		}
	}()
	return e.f(now)
}
