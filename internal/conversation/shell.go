// Package conversation implements the chat front end of the risk engine: it
// collects the seven parameters either one per turn or as one comma-separated
// line, validates them and renders the assessment report.
package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/neorisk-server/internal/domain"
)

// Reply is the shell's answer to one user turn.
type Reply struct {
	Text     string                   `json:"reply"`
	Complete bool                     `json:"complete"`
	Result   *domain.AssessmentResult `json:"result,omitempty"`
}

// Shell drives the conversation for any number of chats. Turns of the same
// chat are serialized within the process by a striped lock; across replicas
// sharing one store, the store's conditional Save rejects the turn that lost
// the race. Different chats proceed concurrently.
type Shell struct {
	assessor domain.Assessor
	store    SessionStore
	locks    *stripedLock
	logger   *logrus.Logger
}

// NewShell creates a conversation shell
func NewShell(assessor domain.Assessor, store SessionStore, logger *logrus.Logger) *Shell {
	return &Shell{
		assessor: assessor,
		store:    store,
		locks:    newStripedLock(defaultLockStripes),
		logger:   logger,
	}
}

// HandleMessage processes one user message for chatID. User input problems
// never produce an error; they are answered with a corrective message. A
// non-nil error means the session store failed, and the returned reply still
// carries text suitable for the user.
func (s *Shell) HandleMessage(ctx context.Context, chatID, text string) (*Reply, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return s.handleCommand(ctx, chatID, text)
	}

	session, err := s.store.Load(ctx, chatID)
	if err != nil {
		return s.storeFailure(chatID, err)
	}
	if session == nil {
		session = NewSession(chatID)
	}

	if !session.InProgress() && IsBatch(text) {
		return s.handleBatch(ctx, chatID, text)
	}
	return s.handleSequential(ctx, session, text)
}

// Ping reports whether the session store is reachable. Stores without a
// remote backend are always healthy.
func (s *Shell) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Shell) handleCommand(ctx context.Context, chatID, text string) (*Reply, error) {
	command := strings.ToLower(strings.Fields(text)[0])
	// commands addressed to a bot carry a "@botname" suffix
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	cfg := s.assessor.Config()

	s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"command": command,
	}).Debug("Handling chat command")

	switch command {
	case CommandStart:
		if err := s.store.Delete(ctx, chatID); err != nil {
			return s.storeFailure(chatID, err)
		}
		if err := s.store.Save(ctx, NewSession(chatID)); err != nil {
			return s.saveFailure(chatID, err)
		}
		return &Reply{Text: welcomeMessage(cfg)}, nil
	case CommandHelp:
		if err := s.store.Delete(ctx, chatID); err != nil {
			return s.storeFailure(chatID, err)
		}
		return &Reply{Text: helpMessage(cfg)}, nil
	case CommandCancel:
		if err := s.store.Delete(ctx, chatID); err != nil {
			return s.storeFailure(chatID, err)
		}
		return &Reply{Text: msgCancelled}, nil
	default:
		return &Reply{Text: msgUnknownCommand}, nil
	}
}

func (s *Shell) handleBatch(ctx context.Context, chatID, text string) (*Reply, error) {
	cfg := s.assessor.Config()

	input, err := ParseBatch(cfg, text)
	if err != nil {
		return s.inputFailure(chatID, err, ""), nil
	}
	return s.finish(ctx, chatID, input)
}

func (s *Shell) handleSequential(ctx context.Context, session *Session, text string) (*Reply, error) {
	cfg := s.assessor.Config()

	key, ok := session.Current()
	if !ok {
		// a completed session left behind by a failed report starts over
		fresh := NewSession(session.ChatID)
		fresh.Revision = session.Revision
		session = fresh
		key, _ = session.Current()
	}

	spec, err := cfg.Parameter(key)
	if err != nil {
		return s.defect(session.ChatID, err), nil
	}

	value, err := ParseValue(spec, text)
	if err != nil {
		return s.inputFailure(session.ChatID, err, key), nil
	}

	if _, _, err := s.assessor.ScoreParameter(key, value); err != nil {
		return s.inputFailure(session.ChatID, err, key), nil
	}

	session.Accept(value)

	// the final value is saved too, so a concurrent turn cannot slip in
	// between the last check and the report
	if err := s.store.Save(ctx, session); err != nil {
		return s.saveFailure(session.ChatID, err)
	}
	if session.Complete() {
		return s.finish(ctx, session.ChatID, session.Input())
	}

	next, _ := session.Current()
	return &Reply{Text: nextPrompt(cfg, next)}, nil
}

// finish runs the assessment and resets the chat.
func (s *Shell) finish(ctx context.Context, chatID string, input domain.AssessmentInput) (*Reply, error) {
	result, err := s.assessor.Assess(ctx, input)
	if err != nil {
		if domain.IsInputError(err) {
			return s.inputFailure(chatID, err, ""), nil
		}
		return s.defect(chatID, err), nil
	}

	if err := s.store.Delete(ctx, chatID); err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to reset session after assessment")
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id":    chatID,
		"score":      result.Score,
		"risk_level": result.RiskLevel.Diagnosis,
	}).Info("Chat assessment completed")

	return &Reply{
		Text:     result.Report + "\n" + msgRestart,
		Complete: true,
		Result:   result,
	}, nil
}

func (s *Shell) inputFailure(chatID string, err error, retry domain.ParameterKey) *Reply {
	if domain.IsConfigurationDefect(err) {
		return s.defect(chatID, err)
	}

	s.logger.WithError(err).WithField("chat_id", chatID).Debug("Rejected chat input")
	return &Reply{Text: errorMessage(s.assessor.Config(), err, retry)}
}

func (s *Shell) defect(chatID string, err error) *Reply {
	s.logger.WithError(err).WithField("chat_id", chatID).Error("Configuration integrity error during chat turn")
	return &Reply{Text: msgInternal}
}

func (s *Shell) saveFailure(chatID string, err error) (*Reply, error) {
	if errors.Is(err, ErrSessionConflict) {
		s.logger.WithField("chat_id", chatID).Warn("Concurrent turn for chat, message not recorded")
		return &Reply{Text: msgResend}, nil
	}
	return s.storeFailure(chatID, err)
}

func (s *Shell) storeFailure(chatID string, err error) (*Reply, error) {
	s.logger.WithError(err).WithField("chat_id", chatID).Error("Session store failure")
	if !errors.Is(err, ErrSessionStoreUnavailable) {
		err = errors.Join(ErrSessionStoreUnavailable, err)
	}
	return &Reply{Text: msgStoreDown}, err
}
