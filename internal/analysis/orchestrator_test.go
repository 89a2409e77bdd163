package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/llm"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

type mockProvider struct {
	mock.Mock
	name string

	mu    sync.Mutex
	model string
}

func newMockProvider(name string) *mockProvider {
	return &mockProvider{name: name, model: name + "-model"}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *mockProvider) SetModel(model string) {
	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
}

func (m *mockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const goodAnswer = `{"truthiness_percentage": 25, "confidence": 0.9, "urgency_level": "high", "spread_risk": "medium"}`

func TestAnalyze_FallsBackAfterTimeout(t *testing.T) {
	p1 := newMockProvider("pawan")
	p2 := newMockProvider("openai")
	p3 := newMockProvider("gemini")

	p1.On("Complete", mock.Anything, mock.Anything).Return("", fmt.Errorf("pawan: %w", llm.ErrProviderTimeout)).Once()
	p2.On("Complete", mock.Anything, mock.Anything).Return(goodAnswer, nil).Once()

	o := NewOrchestrator([]llm.Provider{p1, p2, p3})
	result, err := o.Analyze(context.Background(), "claim", nil, "guild")
	require.NoError(t, err)

	assert.Equal(t, "openai", result.ProviderUsed)
	assert.Equal(t, 25.0, result.TruthinessPercent)
	assert.Equal(t, types.UrgencyHigh, result.Urgency)
	assert.False(t, result.Degraded)

	p1.AssertExpectations(t)
	p2.AssertExpectations(t)
	p3.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnalyze_RealTimeout(t *testing.T) {
	slow := newMockProvider("slow")
	fast := newMockProvider("fast")

	slow.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return("", context.DeadlineExceeded).Once()
	fast.On("Complete", mock.Anything, mock.Anything).Return(goodAnswer, nil).Once()

	o := NewOrchestrator([]llm.Provider{slow, fast}, WithCallTimeout(20*time.Millisecond))
	result, err := o.Analyze(context.Background(), "claim", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "fast", result.ProviderUsed)
}

func TestAnalyze_MalformedIsAFailure(t *testing.T) {
	p1 := newMockProvider("first")
	p2 := newMockProvider("second")
	p1.On("Complete", mock.Anything, mock.Anything).Return("Sorry, I can't help with that.", nil).Once()
	p2.On("Complete", mock.Anything, mock.Anything).Return("```json\n"+goodAnswer+"\n```", nil).Once()

	o := NewOrchestrator([]llm.Provider{p1, p2})
	result, err := o.Analyze(context.Background(), "claim", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "second", result.ProviderUsed)
}

func TestAnalyze_AllFail(t *testing.T) {
	p1 := newMockProvider("first")
	p2 := newMockProvider("second")
	p1.On("Complete", mock.Anything, mock.Anything).Return("", fmt.Errorf("first: %w", llm.ErrTransport)).Once()
	p2.On("Complete", mock.Anything, mock.Anything).Return("", fmt.Errorf("second: %w", llm.ErrCircuitOpen)).Once()

	o := NewOrchestrator([]llm.Provider{p1, p2})
	_, err := o.Analyze(context.Background(), "claim", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	p1.AssertNumberOfCalls(t, "Complete", 1)
	p2.AssertNumberOfCalls(t, "Complete", 1)
}

func TestAnalyze_NoProviders(t *testing.T) {
	_, err := NewOrchestrator(nil).Analyze(context.Background(), "claim", nil, "")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestAnalyze_CallerCancellationDoesNotAbortAttempt(t *testing.T) {
	p := newMockProvider("only")
	p.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		assert.NoError(t, args.Get(0).(context.Context).Err())
	}).Return(goodAnswer, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewOrchestrator([]llm.Provider{p}).Analyze(ctx, "claim", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "only", result.ProviderUsed)
}

func TestRate_MarksDegraded(t *testing.T) {
	p := newMockProvider("only")
	p.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.System == llm.SystemPrompt && req.Prompt == llm.RatingPrompt("claim")
	})).Return(`{"truthiness_percentage": 10, "confidence": 0.7}`, nil).Once()

	result, err := NewOrchestrator([]llm.Provider{p}).Rate(context.Background(), "claim")
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, types.UrgencyMedium, result.Urgency)
	p.AssertExpectations(t)
}

func TestSetOrder(t *testing.T) {
	a, b, c := newMockProvider("a"), newMockProvider("b"), newMockProvider("c")
	o := NewOrchestrator([]llm.Provider{a, b, c})

	require.NoError(t, o.SetOrder([]string{"c", "a"}))
	assert.Equal(t, []string{"c", "a", "b"}, o.Order())

	assert.Error(t, o.SetOrder([]string{"zzz"}))
	assert.Error(t, o.SetOrder([]string{"a", "a"}))
	assert.Equal(t, []string{"c", "a", "b"}, o.Order())

	c.On("Complete", mock.Anything, mock.Anything).Return(goodAnswer, nil).Once()
	result, err := o.Analyze(context.Background(), "claim", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "c", result.ProviderUsed)
	a.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSetModel(t *testing.T) {
	a := newMockProvider("a")
	o := NewOrchestrator([]llm.Provider{a})

	require.NoError(t, o.SetModel("a", "gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", a.Model())
	assert.Error(t, o.SetModel("missing", "x"))
	assert.Error(t, o.SetModel("a", "  "))

	status := o.Status()
	require.Len(t, status, 1)
	assert.Equal(t, ProviderStatus{Name: "a", Model: "gpt-4o-mini"}, status[0])
}

func TestAnalyze_Concurrent(t *testing.T) {
	p := newMockProvider("only")
	p.On("Complete", mock.Anything, mock.Anything).Return(goodAnswer, nil)
	o := NewOrchestrator([]llm.Provider{p, newMockProvider("spare")})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				_ = o.SetOrder([]string{"only"})
			}
			result, err := o.Analyze(context.Background(), fmt.Sprintf("claim %d", i), nil, "")
			assert.NoError(t, err)
			if err == nil {
				assert.Equal(t, "only", result.ProviderUsed)
			}
		}(i)
	}
	wg.Wait()
}
