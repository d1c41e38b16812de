package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/spigell/resume-agent/internal/ai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestGeneratorSendsSystemInstruction(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("```json\n{}\n```"), nil)

	g := newGenerator(chats, Options{Model: "gemini-pro"}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "```json\n{}\n```" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(chats.calls))
	}

	call := chats.calls[0]
	if call.config == nil || call.config.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}
	if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
		t.Fatalf("unexpected system instruction: %q", got)
	}
	if call.config.Temperature == nil || *call.config.Temperature != defaultTemperature {
		t.Fatalf("expected default temperature, got %v", call.config.Temperature)
	}
	if call.config.MaxOutputTokens != defaultMaxOutputTokens {
		t.Fatalf("expected default max tokens, got %d", call.config.MaxOutputTokens)
	}
	if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
		t.Fatalf("unexpected chat message: %+v", call.chat.messages)
	}
}

func TestGeneratorHonoursZeroTemperature(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-pro", textResponse("{}"), nil)

	zero := float32(0)
	g := newGenerator(chats, Options{Model: "gemini-pro", Temperature: &zero}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := chats.calls[0].config.Temperature
	if got == nil || *got != 0 {
		t.Fatalf("expected temperature 0, got %v", got)
	}
}

func TestGeneratorMakesSingleAttempt(t *testing.T) {
	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("never reached"), nil)

	g := newGenerator(chats, Options{Model: "gemini-pro"}, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "sys", "msg")

	var callErr *ai.ModelCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected ModelCallError, got %v", err)
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected api error to be preserved, got %v", err)
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue(defaultModel, &genai.GenerateContentResponse{}, nil)

	g := newGenerator(chats, Options{}, nil)

	_, err := g.GenerateContent(context.Background(), "sys", "msg")

	var callErr *ai.ModelCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected ModelCallError for empty response, got %v", err)
	}
}

func TestGeneratorReturnsContextError(t *testing.T) {
	chats := newFakeChatCreator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chats.enqueue(defaultModel, nil, context.Canceled)

	g := newGenerator(chats, Options{RequestsPerMinute: 60}, nil)

	_, err := g.GenerateContent(ctx, "sys", "msg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var callErr *ai.ModelCallError
	if errors.As(err, &callErr) {
		t.Fatalf("context errors must not be reported as call errors")
	}
}

func TestNewGeneratorWithoutKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), Options{APIKey: "  "}, nil)
	if !errors.Is(err, ai.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: " first "},
				nil,
				{Text: "second"},
			}}},
		},
	}

	if got := responseText(resp); got != "first\nsecond" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Fatalf("expected empty text for nil response, got %q", got)
	}
}
