package client

import (
	"context"
	"errors"
	"sync"
)

// State is the position of a Workflow in its submission lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var (
	// ErrNotReady is returned when no speaker session has been selected.
	ErrNotReady = errors.New("client: no session selected")
	// ErrInvalidForm is returned when required fields are missing locally.
	ErrInvalidForm = errors.New("client: form is incomplete")
	// ErrSubmissionInFlight is returned while a submission is outstanding.
	ErrSubmissionInFlight = errors.New("client: submission already in flight")
	// ErrAlreadySubmitted is returned once the interaction has succeeded.
	ErrAlreadySubmitted = errors.New("client: rsvp already submitted")
)

// FormError carries the local field messages behind ErrInvalidForm.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string { return ErrInvalidForm.Error() }

func (e *FormError) Unwrap() error { return ErrInvalidForm }

// Snapshot is a copy of the workflow state handed to callers and observers.
type Snapshot struct {
	State   State
	Form    Form
	ID      int64
	Message string
	Fields  map[string]string
}

// Workflow drives one RSVP interaction: Idle, Submitting, then Success or
// Failed. Failed may be retried. Success is terminal until Reset. At most one
// submission is outstanding at a time.
type Workflow struct {
	submitter Submitter

	mu        sync.Mutex
	state     State
	form      Form
	id        int64
	message   string
	fields    map[string]string
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewWorkflow returns an idle workflow submitting through s.
func NewWorkflow(s Submitter) *Workflow {
	return &Workflow{submitter: s, state: StateIdle, observers: make(map[int]func(Snapshot))}
}

// OnChange registers fn to receive a snapshot after every transition. The
// returned function unregisters it.
func (w *Workflow) OnChange(fn func(Snapshot)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextObs
	w.nextObs++
	w.observers[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.observers, id)
		w.mu.Unlock()
	}
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns a copy of the current state and form.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Open selects the session the form registers for.
func (w *Workflow) Open(speakerName, sessionDate string) error {
	return w.Edit(func(f *Form) {
		f.SpeakerName = speakerName
		f.SessionDate = sessionDate
	})
}

// Edit applies fn to the form. Edits are refused while submitting and after
// success.
func (w *Workflow) Edit(fn func(*Form)) error {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	fn(&w.form)
	w.mu.Unlock()
	return nil
}

// Submit sends the form. It only leaves Idle or Failed, and only when the
// form passes the local checks; otherwise no request is made.
func (w *Workflow) Submit(ctx context.Context) (int64, error) {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return 0, err
	}
	if !w.form.HasSession() {
		w.mu.Unlock()
		return 0, ErrNotReady
	}
	if fields := w.form.Validate(); fields != nil {
		w.fields = fields
		w.mu.Unlock()
		return 0, &FormError{Fields: fields}
	}

	w.state = StateSubmitting
	w.message = ""
	w.fields = nil
	form := w.form
	w.notifyAndUnlock()

	id, err := w.submitter.SubmitRSVP(ctx, form)

	w.mu.Lock()
	if err != nil {
		w.state = StateFailed
		w.message = err.Error()
		var sErr *SubmitError
		if errors.As(err, &sErr) {
			w.message = sErr.Message
			w.fields = sErr.Fields
		}
	} else {
		w.state = StateSuccess
		w.id = id
	}
	w.notifyAndUnlock()
	return id, err
}

// Reset discards the form and returns to Idle. It is refused while a
// submission is outstanding.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	w.state = StateIdle
	w.form = Form{}
	w.id = 0
	w.message = ""
	w.fields = nil
	w.notifyAndUnlock()
	return nil
}

func (w *Workflow) editableLocked() error {
	switch w.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateSuccess:
		return ErrAlreadySubmitted
	}
	return nil
}

func (w *Workflow) snapshotLocked() Snapshot {
	var fields map[string]string
	if len(w.fields) > 0 {
		fields = make(map[string]string, len(w.fields))
		for k, v := range w.fields {
			fields[k] = v
		}
	}
	return Snapshot{State: w.state, Form: w.form, ID: w.id, Message: w.message, Fields: fields}
}

// notifyAndUnlock releases w.mu and then calls the observers.
func (w *Workflow) notifyAndUnlock() {
	snap := w.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(w.observers))
	for _, fn := range w.observers {
		observers = append(observers, fn)
	}
	w.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
