package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// FallbackAssistantMessage is appended to the transcript when the dialogue
// endpoint fails; the draft is never touched and there is no automatic retry.
const FallbackAssistantMessage = "Ассистент временно недоступен. Попробуйте отправить сообщение ещё раз или заполните параметры вручную."

var fieldLabels = map[domain.FieldKey]string{
	domain.FieldCabinetType: "тип шкафа",
	domain.FieldWidthMM:     "ширина (мм)",
	domain.FieldHeightMM:    "высота (мм)",
	domain.FieldDepthMM:     "глубина (мм)",
	domain.FieldMaterial:    "материал",
	domain.FieldThicknessMM: "толщина плиты (мм)",
}

// SuggestedPrompt deterministically builds the opening prompt from the
// fields still carrying their default source, in canonical field order.
func SuggestedPrompt(d *domain.Draft) string {
	missing := d.MissingFields()
	if len(missing) == 0 {
		return "Все параметры шкафа заполнены. Проверьте, пожалуйста, детали и подскажите, что ещё стоит уточнить перед подтверждением заказа."
	}
	labels := make([]string, 0, len(missing))
	for _, k := range missing {
		labels = append(labels, fieldLabels[k])
	}
	return fmt.Sprintf("Помогите определить параметры шкафа. Пока не указаны: %s. Задайте мне уточняющие вопросы.", strings.Join(labels, ", "))
}

// ClarifyUC drives assistant turns for a wizard session.
type ClarifyUC struct {
	backend domain.Backend
	wizard  *WizardUC
}

func NewClarifyUC(b domain.Backend, w *WizardUC) *ClarifyUC {
	return &ClarifyUC{backend: b, wizard: w}
}

// Transcript returns a copy of the session's chat history.
func (uc *ClarifyUC) Transcript(ctx context.Context, id uuid.UUID) ([]domain.ChatMessage, error) {
	s, err := uc.wizard.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out, nil
}

// SendMessage appends the user message, requests one assistant turn and
// grows a single assistant message chunk by chunk in arrival order. Every
// chunk is also forwarded to sink so the HTTP layer can stream it to the
// browser. Cancelling ctx closes the upstream read; nothing mutates the
// session after that.
func (uc *ClarifyUC) SendMessage(ctx context.Context, id uuid.UUID, content string, sink func(chunk string)) error {
	s, err := uc.wizard.session(ctx, id)
	if err != nil {
		return err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("пустое сообщение: %w", domain.ErrOutOfRange)
	}

	s.mu.Lock()
	if s.mode != domain.ModeClarify {
		s.mu.Unlock()
		return fmt.Errorf("чат доступен только в режиме уточнения (сейчас %s): %w", s.mode, domain.ErrInvalidTransition)
	}
	s.chat = append(s.chat, domain.NewChatMessage(domain.RoleUser, content))
	history := make([]domain.ChatMessage, len(s.chat))
	copy(history, s.chat)
	correlationID := s.orderID
	if correlationID == "" {
		// no order exists before confirm; the session id scopes the dialogue
		correlationID = s.ID.String()
	}
	s.mu.Unlock()

	stream, err := uc.backend.ClarifyStream(ctx, correlationID, history)
	if err != nil {
		log.Warn().Err(err).Str("session", id.String()).Msg("dialogue request failed")
		uc.appendAssistant(s, FallbackAssistantMessage)
		if sink != nil {
			sink(FallbackAssistantMessage)
		}
		return nil
	}
	defer stream.Close()

	s.mu.Lock()
	s.chat = append(s.chat, domain.NewChatMessage(domain.RoleAssistant, ""))
	idx := len(s.chat) - 1
	s.mu.Unlock()

	received := false
	buf := make([]byte, 512)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			received = true
			s.mu.Lock()
			s.chat[idx].Content += chunk
			s.mu.Unlock()
			if sink != nil {
				sink(chunk)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			log.Warn().Err(rerr).Str("session", id.String()).Msg("dialogue stream interrupted")
			if !received {
				s.mu.Lock()
				s.chat[idx].Content = FallbackAssistantMessage
				s.mu.Unlock()
				if sink != nil {
					sink(FallbackAssistantMessage)
				}
			} else {
				uc.appendAssistant(s, FallbackAssistantMessage)
				if sink != nil {
					sink("\n" + FallbackAssistantMessage)
				}
			}
			return nil
		}
	}
}

func (uc *ClarifyUC) appendAssistant(s *Session, content string) {
	s.mu.Lock()
	s.chat = append(s.chat, domain.NewChatMessage(domain.RoleAssistant, content))
	s.mu.Unlock()
}
