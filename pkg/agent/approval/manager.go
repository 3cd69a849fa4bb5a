// Package approval correlates tool-approval requests with the answers the UI
// sends back, possibly from another goroutine.
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/google/uuid"
)

// DefaultTimeout bounds how long a request waits for an answer.
const DefaultTimeout = 5 * time.Minute

// UnknownWindow is used when the requesting window cannot be resolved.
const UnknownWindow = "unknown"

// ErrApprovalTimeout is returned when nobody answers a request in time.
var ErrApprovalTimeout = errors.New("approval request timed out")

var logger *logging.Logger

func init() {
	logger = logging.NewLogger("approval")
}

// EventEmitter is a function type for emitting events
type EventEmitter func(event *types.AgentEvent)

// WindowResolver reports which browser window a request originates from.
type WindowResolver interface {
	ActiveWindowID(ctx context.Context) (string, error)
}

// WindowResolverFunc adapts a function to WindowResolver.
type WindowResolverFunc func(ctx context.Context) (string, error)

// ActiveWindowID calls f.
func (f WindowResolverFunc) ActiveWindowID(ctx context.Context) (string, error) { return f(ctx) }

// Request describes a tool call awaiting a human decision.
type Request struct {
	SessionID string
	ToolName  string
	ToolInput string
	Reason    string
	WindowID  string
}

// Correlator tracks pending approval requests keyed by request id.
type Correlator struct {
	mu               sync.Mutex
	pendingApprovals map[string]*pendingApproval
	timeout          time.Duration
	emitEvent        EventEmitter
	resolver         WindowResolver
}

// pendingApproval tracks an approval request that is waiting for user response
type pendingApproval struct {
	requestID string
	toolName  string
	response  chan bool
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithTimeout sets the wait limit. Zero or negative waits until ctx is done.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) { c.timeout = d }
}

// WithEmitter sets where approval events are published.
func WithEmitter(emit EventEmitter) Option {
	return func(c *Correlator) { c.emitEvent = emit }
}

// WithWindowResolver sets the resolver consulted when a request has no window id.
func WithWindowResolver(r WindowResolver) Option {
	return func(c *Correlator) { c.resolver = r }
}

// NewCorrelator creates a correlator with DefaultTimeout.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		pendingApprovals: make(map[string]*pendingApproval),
		timeout:          DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	defaultOnce       sync.Once
	defaultCorrelator *Correlator
)

// Default returns the process-wide correlator.
func Default() *Correlator {
	defaultOnce.Do(func() {
		defaultCorrelator = NewCorrelator()
	})
	return defaultCorrelator
}

// Configure applies options to an existing correlator, typically Default().
func (c *Correlator) Configure(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range opts {
		opt(c)
	}
}

// NewRequestID returns an id of the form approval_<unix-millis>_<8 hex chars>.
func NewRequestID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("approval_%d_%s", time.Now().UnixMilli(), random)
}

// RequestApproval publishes a request and blocks until it is answered, the
// timeout fires or ctx is done. Only an explicit grant returns true.
func (c *Correlator) RequestApproval(ctx context.Context, req Request) (bool, error) {
	c.mu.Lock()
	timeout, emit, resolver := c.timeout, c.emitEvent, c.resolver
	c.mu.Unlock()

	if req.WindowID == "" {
		req.WindowID = resolveWindow(ctx, resolver)
	}

	requestID := NewRequestID()
	responseChannel := make(chan bool, 1)

	c.setupPendingApproval(requestID, req.ToolName, responseChannel)
	defer c.cleanupPendingApproval(requestID)

	logger.Infof("Requesting approval %s for %s", requestID, req.ToolName)
	publish(emit, types.NewToolApprovalRequestEvent(types.ApprovalRequest{
		RequestID: requestID,
		ToolName:  req.ToolName,
		ToolInput: req.ToolInput,
		Reason:    req.Reason,
		SessionID: req.SessionID,
		WindowID:  req.WindowID,
	}))

	return c.waitForResponse(ctx, requestID, req.ToolName, timeout, emit, responseChannel)
}

// HandleApprovalResponse delivers the UI's decision. Unknown or already
// resolved ids are logged and ignored. It reports whether a request matched.
func (c *Correlator) HandleApprovalResponse(requestID string, approved bool) bool {
	c.mu.Lock()
	pa, ok := c.pendingApprovals[requestID]
	if ok {
		delete(c.pendingApprovals, requestID)
	}
	c.mu.Unlock()

	if !ok {
		logger.Warnf("Ignoring approval response for unknown request %s", requestID)
		return false
	}

	// Buffered and removed from the table above, so this send never blocks.
	pa.response <- approved
	return true
}

// Pending returns the number of unanswered requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pendingApprovals)
}

func (c *Correlator) setupPendingApproval(requestID, toolName string, responseChannel chan bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingApprovals[requestID] = &pendingApproval{
		requestID: requestID,
		toolName:  toolName,
		response:  responseChannel,
	}
}

// cleanupPendingApproval is a no-op when a response already removed the entry.
func (c *Correlator) cleanupPendingApproval(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pendingApprovals, requestID)
}

func resolveWindow(ctx context.Context, resolver WindowResolver) string {
	if resolver == nil {
		return UnknownWindow
	}
	id, err := resolver.ActiveWindowID(ctx)
	if err != nil || id == "" {
		logger.Warnf("Could not resolve window for approval request: %v", err)
		return UnknownWindow
	}
	return id
}

func publish(emit EventEmitter, event *types.AgentEvent) {
	if emit != nil {
		emit(event)
	}
}
