package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"hr-agents/internal/domain"
	"hr-agents/internal/infra/tracer"
)

// RouterSystemPrompt instructs the model to emit exactly one routing label.
const RouterSystemPrompt = `You are a Router, that analyzes the input query and chooses 3 options:
POLICY: If the query is about HR policies, like leave, remote work, etc.
TIMEOFF: If the query is about time off requests, both creating requests and checking balances
UNSUPPORTED: Any other query that is not related to HR policies or time off requests.

The output should only be just one word out of the possible 3 : POLICY, TIMEOFF, UNSUPPORTED.`

// declineText is returned for queries outside the supported intents.
const declineText = `Sorry, I cannot help you with this request.
I only support HR policy queries and timeoff requests.
Please contact your HR representative for assistance.`

// RouterDeps holds injected dependencies for the router.
type RouterDeps struct {
	LLM     domain.LLMProvider
	Policy  domain.Dispatcher
	Timeoff domain.Dispatcher
	Logger  *slog.Logger
	User    string // acting user bound into every dispatch
}

// Router classifies an incoming query into one of three intents and hands it
// to the matching branch. Each turn is a straight line: classify, dispatch,
// done. There is no loop and no revisiting of a decision.
type Router struct {
	deps         RouterDeps
	systemPrompt string
}

// NewRouter creates a router with the given dependencies.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		deps:         deps,
		systemPrompt: RouterSystemPrompt,
	}
}

// NewConversation starts a fresh turn seeded with the user's query.
func NewConversation(query string) *domain.Conversation {
	now := time.Now()
	conv := &domain.Conversation{
		ID:        ulid.Make().String(),
		CreatedAt: now,
	}
	conv.Append(domain.Message{Role: domain.RoleUser, Content: query})
	return conv
}

// Route runs one turn: classify the conversation's query, dispatch to the
// chosen branch, append the branch's answer, and return it. The answer text
// is also the conversation's last message.
//
// Classification failure is fatal for the turn. Dispatch failure is not: the
// error text becomes the turn's answer so the caller still gets a reply.
func (r *Router) Route(ctx context.Context, conv *domain.Conversation) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "router.route",
		trace.WithAttributes(tracer.StringAttr("conversation.id", conv.ID)),
	)
	defer span.End()

	decision, err := r.classify(ctx, conv)
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("classify", err)
	}
	span.SetAttributes(tracer.StringAttr("router.decision", string(decision)))
	r.deps.Logger.Info("destination chosen", "conversation", conv.ID, "decision", decision)

	// Every branch receives the original query, not the classifier's reply.
	prompt := conv.FirstUserPrompt()

	var answer string
	switch decision {
	case domain.RoutePolicy:
		answer = r.dispatch(ctx, r.deps.Policy, prompt)
	case domain.RouteTimeoff:
		answer = r.dispatch(ctx, r.deps.Timeoff, prompt)
	default:
		answer = declineText
	}

	conv.Append(domain.Message{Role: domain.RoleAssistant, Content: answer})
	tracer.SetOK(span)
	return answer, nil
}

// classify asks the model for a routing label and records the raw reply in
// the conversation before coercing it.
func (r *Router) classify(ctx context.Context, conv *domain.Conversation) (domain.RouteDecision, error) {
	messages := make([]domain.Message, 0, len(conv.Messages)+1)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: r.systemPrompt})
	messages = append(messages, conv.Messages...)

	resp, err := r.deps.LLM.Chat(ctx, domain.ChatRequest{Messages: messages})
	if err != nil {
		return domain.RouteUnsupported, err
	}

	conv.Append(domain.Message{Role: domain.RoleAssistant, Content: resp.Message.Content})
	return domain.ParseRouteDecision(resp.Message.Content), nil
}

// dispatch invokes a branch and folds failures into the answer text so the
// turn still terminates normally.
func (r *Router) dispatch(ctx context.Context, d domain.Dispatcher, prompt string) string {
	answer, err := d.Dispatch(ctx, r.deps.User, prompt)
	if err != nil {
		r.deps.Logger.Error("agent dispatch failed", "error", err)
		return "The agent handling this request could not be reached: " + err.Error()
	}
	return answer
}
