package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/steveyegge/dupsweep/internal/types"
)

// Mutating method names recorded by MemoryClient
const (
	MethodCreateComment = "CreateComment"
	MethodAddLabels     = "AddLabels"
	MethodSetState      = "SetState"
)

// Call is one mutating request received by a MemoryClient
type Call struct {
	Method string
	Issue  int
	Args   []string
}

// MemoryClient is an in-process tracker backed by a fixed issue set.
// Every mutating call is recorded, including ones that fail.
type MemoryClient struct {
	mu       sync.Mutex
	order    []int
	issues   map[int]types.IssueRecord
	states   map[int]types.State
	comments map[int][]string
	calls    []Call

	// known labels; nil accepts any label
	knownLabels map[string]bool

	listErr  error
	failures map[string]map[int]error
}

// Compile-time check that MemoryClient implements Client
var _ Client = (*MemoryClient)(nil)

// NewMemoryClient creates a client holding issues, all open, in the given order
func NewMemoryClient(issues []types.IssueRecord) *MemoryClient {
	m := &MemoryClient{
		issues:   make(map[int]types.IssueRecord, len(issues)),
		states:   make(map[int]types.State, len(issues)),
		comments: make(map[int][]string),
		failures: make(map[string]map[int]error),
	}
	for _, issue := range issues {
		if _, exists := m.issues[issue.Number]; !exists {
			m.order = append(m.order, issue.Number)
		}
		m.issues[issue.Number] = issue
		m.states[issue.Number] = types.StateOpen
	}
	return m
}

// LoadFixture reads a JSON array of issues from path
func LoadFixture(path string) (*MemoryClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issues file: %w", err)
	}
	var issues []types.IssueRecord
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse issues file %s: %w", path, err)
	}
	for i := range issues {
		if err := issues[i].Validate(); err != nil {
			return nil, fmt.Errorf("issue at index %d: %w", i, err)
		}
	}
	return NewMemoryClient(issues), nil
}

// SetKnownLabels restricts AddLabels to the given labels; others fail with ErrLabelNotFound
func (m *MemoryClient) SetKnownLabels(labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.knownLabels = make(map[string]bool, len(labels))
	for _, l := range labels {
		m.knownLabels[strings.ToLower(l)] = true
	}
}

// FailList makes ListOpenIssues and GetIssue return err
func (m *MemoryClient) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// FailOn makes method return err for issue number
func (m *MemoryClient) FailOn(method string, number int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures[method] == nil {
		m.failures[method] = make(map[int]error)
	}
	m.failures[method][number] = err
}

// ListOpenIssues returns open issues passing Filter, capped at PageSize*MaxPages
func (m *MemoryClient) ListOpenIssues(ctx context.Context, opts ListOptions) ([]types.IssueRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// one page holds everything
	if err := opts.waitPage(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	opts = opts.withDefaults()
	limit := opts.PageSize * opts.MaxPages

	open := make([]types.IssueRecord, 0, len(m.order))
	for _, n := range m.order {
		if m.states[n] != types.StateOpen {
			continue
		}
		if len(open) == limit {
			break
		}
		open = append(open, m.issues[n])
	}
	return Filter(open, opts), nil
}

// GetIssue returns a copy of the issue
func (m *MemoryClient) GetIssue(ctx context.Context, number int) (*types.IssueRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	issue, ok := m.issues[number]
	if !ok {
		return nil, fmt.Errorf("issue #%d: %w", number, ErrNotFound)
	}
	return &issue, nil
}

// CreateComment appends a comment
func (m *MemoryClient) CreateComment(ctx context.Context, number int, body string) error {
	return m.mutate(ctx, Call{Method: MethodCreateComment, Issue: number, Args: []string{body}}, func() error {
		m.comments[number] = append(m.comments[number], body)
		return nil
	})
}

// AddLabels attaches labels, failing with ErrLabelNotFound for unknown labels
func (m *MemoryClient) AddLabels(ctx context.Context, number int, labels []string) error {
	return m.mutate(ctx, Call{Method: MethodAddLabels, Issue: number, Args: labels}, func() error {
		if m.knownLabels != nil {
			for _, l := range labels {
				if !m.knownLabels[strings.ToLower(l)] {
					return fmt.Errorf("%q: %w", l, ErrLabelNotFound)
				}
			}
		}
		issue := m.issues[number]
		for _, l := range labels {
			if !issue.HasLabel(l) {
				issue.Labels = append(issue.Labels, l)
			}
		}
		m.issues[number] = issue
		return nil
	})
}

// SetState changes the issue state
func (m *MemoryClient) SetState(ctx context.Context, number int, state types.State) error {
	return m.mutate(ctx, Call{Method: MethodSetState, Issue: number, Args: []string{string(state)}}, func() error {
		if !state.IsValid() {
			return fmt.Errorf("invalid state: %s", state)
		}
		m.states[number] = state
		return nil
	})
}

// mutate records call, then applies it unless the issue is unknown or a failure is injected
func (m *MemoryClient) mutate(ctx context.Context, call Call, apply func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)
	if err := m.failures[call.Method][call.Issue]; err != nil {
		return err
	}
	if _, ok := m.issues[call.Issue]; !ok {
		return fmt.Errorf("issue #%d: %w", call.Issue, ErrNotFound)
	}
	return apply()
}

// Calls returns the recorded mutating calls in order
func (m *MemoryClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// MutationCount returns the number of mutating calls received
func (m *MemoryClient) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Comments returns the comments posted on an issue
func (m *MemoryClient) Comments(number int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.comments[number]...)
}

// State returns the current state of an issue
func (m *MemoryClient) State(number int) types.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[number]
}
