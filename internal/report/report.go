// Package report carries per-state job outcomes to the console and the run ledger.
package report

import (
	"fmt"
	"io"
	"sync"
)

// Status classifies the outcome for one state.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
	StatusWarned  Status = "warned"
)

// Item is the outcome of one state in one job.
type Item struct {
	State  string
	Status Status
	Detail string
	Count  int // rows or features written
}

// Summary counts outcomes across a run.
type Summary struct {
	Created int
	Skipped int
	Empty   int
	Failed  int
	Warned  int
}

// Add counts the item.
func (s *Summary) Add(it Item) {
	switch it.Status {
	case StatusCreated:
		s.Created++
	case StatusSkipped:
		s.Skipped++
	case StatusEmpty:
		s.Empty++
	case StatusFailed:
		s.Failed++
	case StatusWarned:
		s.Warned++
	}
}

// Merge adds the counters of o.
func (s *Summary) Merge(o Summary) {
	s.Created += o.Created
	s.Skipped += o.Skipped
	s.Empty += o.Empty
	s.Failed += o.Failed
	s.Warned += o.Warned
}

// Sink receives items as a job produces them.
type Sink interface {
	Record(Item)
}

// Discard drops every item.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Item) {}

// Console prints one progress line per item.
type Console struct {
	W io.Writer
}

// Record implements Sink.
func (c Console) Record(it Item) {
	_, _ = fmt.Fprintln(c.W, Line(it))
}

// Line formats an item the way progress lines are printed.
func Line(it Item) string {
	switch it.Status {
	case StatusCreated:
		return fmt.Sprintf("✓ %-20s → %s", it.State, it.Detail)
	case StatusSkipped:
		return fmt.Sprintf("[skip] %-20s %s", it.State, it.Detail)
	case StatusEmpty:
		return fmt.Sprintf("[empty] %-20s %s", it.State, it.Detail)
	case StatusFailed:
		return fmt.Sprintf("[fail] %-20s %s", it.State, it.Detail)
	case StatusWarned:
		return fmt.Sprintf("[warn] %-20s %s", it.State, it.Detail)
	default:
		return fmt.Sprintf("[%s] %-20s %s", it.Status, it.State, it.Detail)
	}
}

// Multi fans items out to several sinks.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(it Item) {
	for _, s := range m {
		if s != nil {
			s.Record(it)
		}
	}
}

// Collector keeps every item in memory. Used by tests and by callers that
// need the items after the run.
type Collector struct {
	mu    sync.Mutex
	Items []Item
}

// Record implements Sink.
func (c *Collector) Record(it Item) {
	c.mu.Lock()
	c.Items = append(c.Items, it)
	c.mu.Unlock()
}

// ByState returns the last item recorded for state.
func (c *Collector) ByState(state string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Items) - 1; i >= 0; i-- {
		if c.Items[i].State == state {
			return c.Items[i], true
		}
	}
	return Item{}, false
}
