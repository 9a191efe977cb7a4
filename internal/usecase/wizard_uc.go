package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// Session is one live wizard run. The draft and the transcript are owned
// exclusively by the session; every mutation goes through its mutex, which
// gives the field-level last-writer-wins rule a defined order.
type Session struct {
	ID        uuid.UUID
	UserEmail string

	mu        sync.Mutex
	mode      domain.WizardMode
	draft     *domain.Draft
	chat      []domain.ChatMessage
	orderID   string
	bomID     string
	creating  bool
	lastError string
	createdAt time.Time
}

// SessionView is the JSON snapshot handed to the SPA.
type SessionView struct {
	SessionID       uuid.UUID                          `json:"session_id"`
	Mode            domain.WizardMode                  `json:"mode"`
	Params          domain.DraftParams                 `json:"params"`
	Sources         map[domain.FieldKey]domain.FieldSource `json:"sources"`
	RecognizedCount int                                `json:"recognized_count"`
	DefaultCount    int                                `json:"default_count"`
	UserEditedCount int                                `json:"user_edited_count"`
	ConfirmEnabled  bool                               `json:"confirm_enabled"`
	OrderID         string                             `json:"order_id,omitempty"`
	BOMID           string                             `json:"bom_id,omitempty"`
	Error           string                             `json:"error,omitempty"`
}

type WizardUC struct {
	backend domain.Backend
	drafts  domain.DraftRepo

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewWizardUC wires the wizard over the backend gateway. drafts may be nil;
// snapshots are then skipped (tests run this way).
func NewWizardUC(b domain.Backend, drafts domain.DraftRepo) *WizardUC {
	return &WizardUC{backend: b, drafts: drafts, sessions: make(map[uuid.UUID]*Session)}
}

func (uc *WizardUC) Start(ctx context.Context, userEmail string) *SessionView {
	s := &Session{
		ID:        uuid.New(),
		UserEmail: userEmail,
		mode:      domain.ModeUpload,
		draft:     domain.NewDraft(),
		createdAt: time.Now(),
	}
	uc.mu.Lock()
	uc.sessions[s.ID] = s
	uc.mu.Unlock()
	uc.persist(ctx, s)
	return uc.view(s)
}

func (uc *WizardUC) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

// Upload runs the sketch through extraction: upload -> processing, then
// review on success or back to upload with a surfaced error.
func (uc *WizardUC) Upload(ctx context.Context, id uuid.UUID, imageB64, mimeType string) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.transition(s, domain.ModeProcessing); err != nil {
		return nil, err
	}

	res, callErr := uc.backend.ExtractFromImage(ctx, domain.ExtractRequest{
		ImageBase64:   imageB64,
		ImageMimeType: mimeType,
	})

	s.mu.Lock()
	if callErr != nil || !res.Success {
		s.mode = domain.ModeUpload
		if callErr != nil {
			log.Warn().Err(callErr).Str("session", id.String()).Msg("extraction call failed")
			s.lastError = "Не удалось распознать эскиз. Попробуйте ещё раз или введите параметры вручную."
		} else {
			s.lastError = extractionErrorMessage(res)
		}
		s.mu.Unlock()
		uc.persist(ctx, s)
		return uc.view(s), nil
	}
	s.mode = domain.ModeReview
	s.lastError = ""
	if res.Parameters != nil {
		s.draft.MergeExtracted(*res.Parameters)
	}
	s.mu.Unlock()
	uc.persist(ctx, s)
	return uc.view(s), nil
}

// Manual switches to manual entry without an image.
func (uc *WizardUC) Manual(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.transition(s, domain.ModeManual); err != nil {
		return nil, err
	}
	uc.persist(ctx, s)
	return uc.view(s), nil
}

// EditField applies a user edit; the field's source becomes user_edited and
// stays that way for any later AI merge.
func (uc *WizardUC) EditField(ctx context.Context, id uuid.UUID, key domain.FieldKey, raw string) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.mode == domain.ModeUpload || s.mode == domain.ModeProcessing {
		s.mu.Unlock()
		return nil, fmt.Errorf("режим %s: %w", s.mode, domain.ErrInvalidTransition)
	}
	if err := s.draft.SetField(key, raw, domain.SourceUserEdited); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	uc.persist(ctx, s)
	return uc.view(s), nil
}

// MergeParams is the onParamUpdate path: structured suggestions from the
// assistant flow back into the draft, never overwriting user edits.
func (uc *WizardUC) MergeParams(ctx context.Context, id uuid.UUID, p domain.ExtractedParams) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.mode != domain.ModeClarify {
		s.mu.Unlock()
		return nil, fmt.Errorf("режим %s: %w", s.mode, domain.ErrInvalidTransition)
	}
	s.draft.MergeExtracted(p)
	s.mu.Unlock()
	uc.persist(ctx, s)
	return uc.view(s), nil
}

// OpenClarify enters the clarify mode. When the transcript is still empty it
// returns the suggested opening prompt so the caller can auto-send it.
func (uc *WizardUC) OpenClarify(ctx context.Context, id uuid.UUID) (*SessionView, string, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := uc.transition(s, domain.ModeClarify); err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	auto := ""
	if len(s.chat) == 0 {
		auto = SuggestedPrompt(s.draft)
	}
	s.mu.Unlock()
	uc.persist(ctx, s)
	return uc.view(s), auto, nil
}

func (uc *WizardUC) CloseClarify(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.transition(s, domain.ModeReview); err != nil {
		return nil, err
	}
	uc.persist(ctx, s)
	return uc.view(s), nil
}

// Confirm exits the wizard: it creates the order and generates its BOM.
// Guards: a confirmable mode, a chosen cabinet type, and at most one
// creation in flight per session. A creation failure leaves the mode and
// the draft untouched so the user can retry without losing input.
func (uc *WizardUC) Confirm(ctx context.Context, id uuid.UUID) (*domain.OrderRef, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if !domain.ConfirmAllowedFrom(s.mode) {
		s.mu.Unlock()
		return nil, fmt.Errorf("подтверждение из режима %s: %w", s.mode, domain.ErrInvalidTransition)
	}
	if s.creating {
		s.mu.Unlock()
		return nil, domain.ErrCreationInFlight
	}
	if s.draft.Params.CabinetType == "" {
		s.mu.Unlock()
		return nil, domain.ErrConfirmUnavailable
	}
	s.creating = true
	params := s.draft.Params
	orderID := s.orderID
	email := s.UserEmail
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.creating = false
		s.mu.Unlock()
	}()

	if orderID == "" {
		spec, _ := json.Marshal(params)
		orderID, err = uc.backend.CreateOrder(ctx, domain.OrderRequest{
			Name:        domain.CabinetTitle(params),
			Description: "Заказ из мастера создания",
			Spec:        string(spec),
			CustomerRef: email,
			Anonymous:   email == "",
		})
		if err != nil {
			return nil, fmt.Errorf("создание заказа: %w", err)
		}
		s.mu.Lock()
		s.orderID = orderID
		s.mu.Unlock()
		uc.persist(ctx, s)
	}

	counts := domain.PartCountsFor(params.CabinetType)
	bomID, err := uc.backend.GenerateBOM(ctx, domain.BOMRequest{
		OrderID:     orderID,
		CabinetType: params.CabinetType,
		WidthMM:     params.WidthMM,
		HeightMM:    params.HeightMM,
		DepthMM:     params.DepthMM,
		Material:    params.Material,
		ShelfCount:  counts.ShelfCount,
		DoorCount:   counts.DoorCount,
		DrawerCount: counts.DrawerCount,
	})
	if err != nil {
		return nil, fmt.Errorf("генерация спецификации: %w", err)
	}

	s.mu.Lock()
	s.bomID = bomID
	s.mu.Unlock()
	uc.persist(ctx, s)
	return &domain.OrderRef{OrderID: orderID, BOMID: bomID, CreatedAt: time.Now()}, nil
}

// Params returns a copy of the current draft parameters.
func (uc *WizardUC) Params(ctx context.Context, id uuid.UUID) (domain.DraftParams, error) {
	s, err := uc.session(ctx, id)
	if err != nil {
		return domain.DraftParams{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Params, nil
}

func (uc *WizardUC) transition(s *Session, to domain.WizardMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.IsValidTransition(s.mode, to) {
		return fmt.Errorf("%s -> %s: %w", s.mode, to, domain.ErrInvalidTransition)
	}
	s.mode = to
	return nil
}

func (uc *WizardUC) session(ctx context.Context, id uuid.UUID) (*Session, error) {
	uc.mu.RLock()
	s, ok := uc.sessions[id]
	uc.mu.RUnlock()
	if ok {
		return s, nil
	}
	restored, err := uc.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.mu.Lock()
	// another request may have restored it first
	if existing, ok := uc.sessions[id]; ok {
		uc.mu.Unlock()
		return existing, nil
	}
	uc.sessions[id] = restored
	uc.mu.Unlock()
	return restored, nil
}

func (uc *WizardUC) restore(ctx context.Context, id uuid.UUID) (*Session, error) {
	if uc.drafts == nil {
		return nil, domain.ErrNotFound
	}
	snap, err := uc.drafts.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := domain.NewDraft()
	if snap.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(snap.ParamsJSON), &draft.Params); err != nil {
			return nil, fmt.Errorf("повреждённый снимок черновика %s: %w", id, err)
		}
	}
	if snap.SourcesJSON != "" {
		if err := json.Unmarshal([]byte(snap.SourcesJSON), &draft.Sources); err != nil {
			return nil, fmt.Errorf("повреждённый снимок черновика %s: %w", id, err)
		}
	}
	mode := domain.WizardMode(snap.Mode)
	if !domain.IsValidMode(mode) || mode == domain.ModeProcessing || mode == domain.ModeClarify {
		// transient modes do not survive a restart
		mode = domain.ModeUpload
		if draft.UserEditedCount()+draft.RecognizedCount() > 0 {
			mode = domain.ModeReview
		}
	}
	return &Session{
		ID:        snap.ID,
		UserEmail: snap.UserEmail,
		mode:      mode,
		draft:     draft,
		orderID:   snap.OrderID,
		bomID:     snap.BOMID,
		createdAt: snap.CreatedAt,
	}, nil
}

func (uc *WizardUC) persist(ctx context.Context, s *Session) {
	if uc.drafts == nil {
		return
	}
	s.mu.Lock()
	params, _ := json.Marshal(s.draft.Params)
	sources, _ := json.Marshal(s.draft.Sources)
	snap := &domain.DraftSnapshot{
		ID:          s.ID,
		UserEmail:   s.UserEmail,
		Mode:        string(s.mode),
		ParamsJSON:  string(params),
		SourcesJSON: string(sources),
		OrderID:     s.orderID,
		BOMID:       s.bomID,
		CreatedAt:   s.createdAt,
	}
	s.mu.Unlock()
	if err := uc.drafts.Save(ctx, snap); err != nil {
		log.Warn().Err(err).Str("session", s.ID.String()).Msg("draft snapshot save failed")
	}
}

func (uc *WizardUC) view(s *Session) *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	sources := make(map[domain.FieldKey]domain.FieldSource, len(s.draft.Sources))
	for k, v := range s.draft.Sources {
		sources[k] = v
	}
	return &SessionView{
		SessionID:       s.ID,
		Mode:            s.mode,
		Params:          s.draft.Params,
		Sources:         sources,
		RecognizedCount: s.draft.RecognizedCount(),
		DefaultCount:    s.draft.DefaultCount(),
		UserEditedCount: s.draft.UserEditedCount(),
		ConfirmEnabled:  domain.ConfirmAllowedFrom(s.mode) && s.draft.Params.CabinetType != "" && !s.creating,
		OrderID:         s.orderID,
		BOMID:           s.bomID,
		Error:           s.lastError,
	}
}

func extractionErrorMessage(res *domain.ExtractResult) string {
	if res.Error != "" {
		return "Распознавание не удалось: " + res.Error
	}
	return "Не удалось распознать параметры на эскизе. Попробуйте другое фото или введите размеры вручную."
}
