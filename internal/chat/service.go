// Package chat runs one conversation turn against the concierge webhook.
package chat

import (
	"context"
	"strings"
	"time"

	"visitrome-concierge/internal/concierge"
	"visitrome-concierge/internal/conversation"
	"visitrome-concierge/internal/identity"
	"visitrome-concierge/internal/logger"
	"visitrome-concierge/internal/relevance"
	"visitrome-concierge/internal/session"
)

const (
	DefaultAgentID = "1"

	ErrorReply    = "There was a problem contacting our travel concierge. Please try again in a moment."
	FallbackReply = "I'm sorry, I couldn't find the information you requested. Please try again."
)

// Service sends user turns to the concierge webhook and records the replies
// on the session's conversation.
type Service struct {
	api        concierge.API
	normalizer relevance.Normalizer
	identity   *identity.Manager
	agentID    string
	log        *logger.Logger
}

// NewService wires a chat service. An empty agentID falls back to
// DefaultAgentID and a nil ids gets a manager with no persistence.
func NewService(api concierge.API, normalizer relevance.Normalizer, ids *identity.Manager, agentID string, log *logger.Logger) *Service {
	if agentID == "" {
		agentID = DefaultAgentID
	}
	if log == nil {
		log = logger.Nop()
	}
	if ids == nil {
		ids = identity.NewManager(nil, log)
	}
	return &Service{
		api:        api,
		normalizer: normalizer,
		identity:   ids,
		agentID:    agentID,
		log:        log.With("service", "ChatService"),
	}
}

// SendMessage appends the trimmed text as a user turn, calls the webhook once
// and appends the assistant's answer. It reports false when text is blank and
// nothing happened. Upstream failures never surface as errors; they become
// a fixed assistant message.
func (s *Service) SendMessage(ctx context.Context, sess *session.Session, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	clientID := sess.AdoptClientID(s.identity.Ensure(ctx, sess.ClientID()))
	conv := sess.Conversation

	conv.Append(conversation.RoleUser, text)
	conv.SetRelevant(nil)
	conv.SetLoading(true)
	defer conv.SetLoading(false)

	// the reply must land even if the browser goes away mid-call
	callCtx := context.WithoutCancel(ctx)
	start := time.Now()
	resp, err := s.api.SendMessage(callCtx, concierge.WebhookRequest{
		Message:  text,
		ClientID: clientID,
		AgentID:  s.agentID,
	})
	if err != nil {
		s.log.Error("webhook call failed", "client_id", clientID, "error", err, "elapsed", time.Since(start))
		conv.Append(conversation.RoleAssistant, ErrorReply)
		return true
	}

	reply := strings.TrimSpace(resp.ReplyText())
	if reply == "" {
		reply = FallbackReply
	}
	conv.Append(conversation.RoleAssistant, reply)

	relevant := s.normalizer.Normalize(resp.RelevantData)
	conv.SetRelevant(relevant)
	if relevant != nil {
		s.log.Debug("relevant data attached", "client_id", clientID,
			"hotels", len(relevant.Hotels), "tours", len(relevant.Tours))
	}
	s.log.Info("webhook reply received", "client_id", clientID, "elapsed", time.Since(start))
	return true
}
