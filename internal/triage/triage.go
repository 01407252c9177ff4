package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nomadcxx/swipesort/internal/media"
)

// DefaultTransitionDelay is how long the swipe animation runs
const DefaultTransitionDelay = 300 * time.Millisecond

var (
	// ErrNoTarget is returned by accept when no target folder is selected
	ErrNoTarget = errors.New("select a target folder first")
	// ErrBusy is returned while a move is pending or a transition is running
	ErrBusy = errors.New("previous action still in progress")
	// ErrExhausted is returned once every item has been decided
	ErrExhausted = errors.New("no more files in this folder")
	// ErrNotMoving is returned when a move result arrives with no move pending
	ErrNotMoving = errors.New("no move in flight")
	// ErrNotAnimating is returned when a transition ends that never started
	ErrNotAnimating = errors.New("no transition running")
)

// Phase is the controller's position in the triage cycle
type Phase int

const (
	PhaseDisplaying Phase = iota
	PhaseMoving
	PhaseAnimating
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseDisplaying:
		return "displaying"
	case PhaseMoving:
		return "moving"
	case PhaseAnimating:
		return "animating"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Direction is the swipe direction of a transition
type Direction int

const (
	DirectionNone Direction = iota
	DirectionAccept
	DirectionReject
)

func (d Direction) String() string {
	switch d {
	case DirectionAccept:
		return "accept"
	case DirectionReject:
		return "reject"
	default:
		return "none"
	}
}

// State is a snapshot of the controller
type State struct {
	Phase     Phase
	Item      media.Item // valid in displaying and moving
	Direction Direction  // valid in animating
}

// MoveRequest is the body sent to the backend on accept
type MoveRequest struct {
	FromPath     string `json:"fromPath"`
	TargetFolder string `json:"targetFolder"`
}

// Mover performs the backend move for an accepted file
type Mover interface {
	Move(ctx context.Context, req MoveRequest) error
}

// TargetSource supplies the destination folder chosen by the user
type TargetSource interface {
	TargetFolder() (string, bool)
}

// FailurePolicy decides what a failed move does to the queue
type FailurePolicy string

const (
	// PolicyHold keeps the failed item on screen so it can be retried
	PolicyHold FailurePolicy = "hold"
	// PolicyAdvance treats a failed move like a successful one
	PolicyAdvance FailurePolicy = "advance"
)

// ParseFailurePolicy converts a config string to a FailurePolicy
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicyHold, "":
		return PolicyHold, nil
	case PolicyAdvance:
		return PolicyAdvance, nil
	default:
		return "", fmt.Errorf("invalid move failure policy: %s (must be hold or advance)", s)
	}
}

// Options tune the controller
type Options struct {
	TransitionDelay time.Duration
	OnMoveFailure   FailurePolicy
}

// DefaultOptions returns the stock timing and failure policy
func DefaultOptions() Options {
	return Options{
		TransitionDelay: DefaultTransitionDelay,
		OnMoveFailure:   PolicyHold,
	}
}

// MoveError reports a move the backend did not complete
type MoveError struct {
	Request MoveRequest
	Err     error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s -> %s failed: %v", e.Request.FromPath, e.Request.TargetFolder, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Stats counts decisions made in this session
type Stats struct {
	Accepted    int
	Rejected    int
	MoveFailed  int
	Unconfirmed int // accepted under PolicyAdvance although the move failed
}

// Controller sequences display, decision, move and transition for one
// queue. It is not safe for concurrent use; hosts drive it from a single
// event loop and feed asynchronous results back through SettleMove and
// Elapse.
type Controller struct {
	queue   *media.Queue
	targets TargetSource
	opts    Options

	state   State
	pending MoveRequest
	stats   Stats
}

// New creates a controller in its initial state: displaying the first
// item, or exhausted when the queue is empty.
func New(queue *media.Queue, targets TargetSource, opts Options) *Controller {
	if opts.TransitionDelay <= 0 {
		opts.TransitionDelay = DefaultTransitionDelay
	}
	if opts.OnMoveFailure == "" {
		opts.OnMoveFailure = PolicyHold
	}

	c := &Controller{queue: queue, targets: targets, opts: opts}
	c.show()
	return c
}

func (c *Controller) show() {
	item, ok := c.queue.Current()
	if !ok {
		c.state = State{Phase: PhaseExhausted}
		return
	}
	c.state = State{Phase: PhaseDisplaying, Item: item}
}

func (c *Controller) ready() error {
	switch c.state.Phase {
	case PhaseExhausted:
		return ErrExhausted
	case PhaseMoving, PhaseAnimating:
		return ErrBusy
	}
	return nil
}

func (c *Controller) animate(d Direction) time.Duration {
	c.queue.Advance()
	c.state = State{Phase: PhaseAnimating, Direction: d}
	return c.opts.TransitionDelay
}

// State returns the current snapshot
func (c *Controller) State() State {
	return c.state
}

// Cursor returns the queue position
func (c *Controller) Cursor() int {
	return c.queue.Cursor()
}

// Len returns the queue length
func (c *Controller) Len() int {
	return c.queue.Len()
}

// Stats returns the decision counters
func (c *Controller) Stats() Stats {
	return c.stats
}

// Options returns the effective options
func (c *Controller) Options() Options {
	return c.opts
}

// Reject skips the current item. The cursor advances immediately and the
// returned delay is how long the host should wait before calling Elapse.
func (c *Controller) Reject() (time.Duration, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	c.stats.Rejected++
	return c.animate(DirectionReject), nil
}

// BeginAccept validates the target and enters the moving phase. The host
// must perform the returned request and report its outcome to SettleMove.
func (c *Controller) BeginAccept() (MoveRequest, error) {
	if err := c.ready(); err != nil {
		return MoveRequest{}, err
	}

	target, ok := c.targets.TargetFolder()
	if !ok {
		return MoveRequest{}, ErrNoTarget
	}

	c.pending = MoveRequest{FromPath: c.state.Item.Path, TargetFolder: target}
	c.state = State{Phase: PhaseMoving, Item: c.state.Item}
	return c.pending, nil
}

// SettleMove finishes an accept once the move call has returned. On
// success, or on failure under PolicyAdvance, the cursor advances and the
// returned delay schedules Elapse. Under PolicyHold a failure returns a
// *MoveError and the same item is displayed again.
func (c *Controller) SettleMove(moveErr error) (time.Duration, error) {
	if c.state.Phase != PhaseMoving {
		return 0, ErrNotMoving
	}
	req := c.pending
	c.pending = MoveRequest{}

	if moveErr != nil {
		c.stats.MoveFailed++
		if c.opts.OnMoveFailure == PolicyHold {
			c.state = State{Phase: PhaseDisplaying, Item: c.state.Item}
			return 0, &MoveError{Request: req, Err: moveErr}
		}
		c.stats.Unconfirmed++
	}

	c.stats.Accepted++
	return c.animate(DirectionAccept), nil
}

// Accept runs BeginAccept, the move and SettleMove in one blocking call
func (c *Controller) Accept(ctx context.Context, mover Mover) (time.Duration, error) {
	req, err := c.BeginAccept()
	if err != nil {
		return 0, err
	}
	return c.SettleMove(mover.Move(ctx, req))
}

// Elapse ends the running transition and shows the next item, or moves
// to exhausted when the queue is done.
func (c *Controller) Elapse() error {
	if c.state.Phase != PhaseAnimating {
		return ErrNotAnimating
	}
	c.show()
	return nil
}
