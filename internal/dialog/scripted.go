package dialog

import (
	"context"
	"sync"
)

// Step is one scripted dialog outcome.
type Step struct {
	Selection Selection
	Err       error
	// Wait, when set, blocks the dialog until it is closed or ctx ends.
	Wait <-chan struct{}
}

// Cancel is the Step of a user dismissing the dialog.
func Cancel() Step {
	return Step{}
}

// Pick is the Step of a user choosing path.
func Pick(path string) Step {
	return Step{Selection: Choose(path)}
}

// Scripted replays queued outcomes. An empty queue behaves like a cancel.
type Scripted struct {
	mu        sync.Mutex
	opens     []Step
	saves     []Step
	openCalls []Options
	saveCalls []Options
}

// NewScripted creates an empty script.
func NewScripted() *Scripted {
	return &Scripted{}
}

// QueueOpen appends outcomes for PickFile.
func (s *Scripted) QueueOpen(steps ...Step) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, steps...)
	return s
}

// QueueSave appends outcomes for PickSaveFile.
func (s *Scripted) QueueSave(steps ...Step) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, steps...)
	return s
}

// OpenCalls returns the options of every PickFile call so far.
func (s *Scripted) OpenCalls() []Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Options(nil), s.openCalls...)
}

// SaveCalls returns the options of every PickSaveFile call so far.
func (s *Scripted) SaveCalls() []Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Options(nil), s.saveCalls...)
}

func (s *Scripted) PickFile(ctx context.Context, opts Options) (Selection, error) {
	s.mu.Lock()
	s.openCalls = append(s.openCalls, opts)
	step := pop(&s.opens)
	s.mu.Unlock()
	return step.play(ctx)
}

func (s *Scripted) PickSaveFile(ctx context.Context, opts Options) (Selection, error) {
	s.mu.Lock()
	s.saveCalls = append(s.saveCalls, opts)
	step := pop(&s.saves)
	s.mu.Unlock()
	return step.play(ctx)
}

func pop(queue *[]Step) Step {
	if len(*queue) == 0 {
		return Cancel()
	}
	step := (*queue)[0]
	*queue = (*queue)[1:]
	return step
}

func (st Step) play(ctx context.Context) (Selection, error) {
	if st.Wait != nil {
		select {
		case <-st.Wait:
		case <-ctx.Done():
			return Selection{}, ctx.Err()
		}
	}
	return st.Selection, st.Err
}
