package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Kirill552/firniture-sub001/internal/domain"
	"github.com/Kirill552/firniture-sub001/internal/usecase"
)

type Server struct {
	mux      *http.ServeMux
	wizard   *usecase.WizardUC
	clarify  *usecase.ClarifyUC
	cam      *usecase.CAMUC
	hardware *usecase.HardwareUC
	prefs    domain.PrefsRepo

	oauthCfg   *oauth2.Config
	sessionKey []byte
}

func New(w *usecase.WizardUC, c *usecase.ClarifyUC, cam *usecase.CAMUC, hw *usecase.HardwareUC, prefs domain.PrefsRepo, oauthCfg *oauth2.Config, sessionKey []byte) http.Handler {
	s := &Server{
		mux:        http.NewServeMux(),
		wizard:     w,
		clarify:    c,
		cam:        cam,
		hardware:   hw,
		prefs:      prefs,
		oauthCfg:   oauthCfg,
		sessionKey: sessionKey,
	}
	s.routes()
	return Chain(s.mux,
		RequestID,
		Recovery,
		Logging,
		Gzip,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/wizard", s.apiWizardStart)
	s.mux.HandleFunc("GET /api/wizard/{id}", s.apiWizardGet)
	s.mux.HandleFunc("POST /api/wizard/{id}/upload", s.apiWizardUpload)
	s.mux.HandleFunc("POST /api/wizard/{id}/manual", s.apiWizardManual)
	s.mux.HandleFunc("POST /api/wizard/{id}/field", s.apiWizardField)
	s.mux.HandleFunc("POST /api/wizard/{id}/params/merge", s.apiWizardMergeParams)
	s.mux.HandleFunc("POST /api/wizard/{id}/clarify", s.apiClarifyOpen)
	s.mux.HandleFunc("POST /api/wizard/{id}/clarify/close", s.apiClarifyClose)
	s.mux.HandleFunc("POST /api/wizard/{id}/confirm", s.apiWizardConfirm)
	s.mux.HandleFunc("GET /api/wizard/{id}/chat", s.apiChatTranscript)
	s.mux.HandleFunc("POST /api/wizard/{id}/chat", s.apiChatSend)
	s.mux.HandleFunc("GET /api/wizard/{id}/cutlist", s.apiCutList)
	s.mux.HandleFunc("GET /api/wizard/{id}/bom.xlsx", s.apiBOMExport)

	s.mux.HandleFunc("POST /api/cam/dxf", s.apiCAMDXF)
	s.mux.HandleFunc("POST /api/cam/gcode", s.apiCAMGCode)
	s.mux.HandleFunc("GET /api/cam/jobs/{id}", s.apiCAMJobStatus)

	s.mux.HandleFunc("POST /api/hardware/select", s.apiHardwareSelect)
	s.mux.HandleFunc("POST /api/integrations/1c/export", s.api1CExport)

	s.mux.HandleFunc("GET /api/prefs/{table}", s.apiPrefsGet)
	s.mux.HandleFunc("PUT /api/prefs/{table}", s.apiPrefsPut)

	s.mux.HandleFunc("GET /api/me", s.apiMe)
	s.mux.HandleFunc("GET /auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("GET /auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("GET /logout", s.handleLogout)
}

// --- wizard ---

func (s *Server) apiWizardStart(w http.ResponseWriter, r *http.Request) {
	email := ""
	if u := s.readUserSession(r); u != nil {
		email = u.Email
	}
	view := s.wizard.Start(r.Context(), email)
	writeJSON(w, 201, view)
}

func (s *Server) apiWizardGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	view, err := s.wizard.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiWizardUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		ImageBase64   string `json:"image_base64"`
		ImageMimeType string `json:"image_mime_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ImageBase64 == "" {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "нужно поле image_base64"})
		return
	}
	view, err := s.wizard.Upload(r.Context(), id, body.ImageBase64, body.ImageMimeType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiWizardManual(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	view, err := s.wizard.Manual(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiWizardField(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "нужны поля key и value"})
		return
	}
	view, err := s.wizard.EditField(r.Context(), id, domain.FieldKey(body.Key), body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiWizardMergeParams(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var p domain.ExtractedParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "invalid json"})
		return
	}
	view, err := s.wizard.MergeParams(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiClarifyOpen(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	view, suggested, err := s.wizard.OpenClarify(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"session":          view,
		"suggested_prompt": suggested,
		// auto_send: the SPA posts the suggested prompt to /chat right away
		// when the transcript is still empty
		"auto_send": suggested != "",
	})
}

func (s *Server) apiClarifyClose(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	view, err := s.wizard.CloseClarify(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiWizardConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	ref, err := s.wizard.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, ref)
}

func (s *Server) apiCutList(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	params, err := s.wizard.Params(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"items": domain.CutList(params)})
}

// --- chat ---

func (s *Server) apiChatTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	msgs, err := s.clarify.Transcript(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"messages": msgs})
}

// apiChatSend streams the assistant reply as plain text. The transcript is
// updated chunk by chunk on the way through; a client disconnect cancels
// the upstream read via the request context.
func (s *Server) apiChatSend(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "invalid json"})
		return
	}
	flusher, _ := w.(http.Flusher)
	wrote := false
	err := s.clarify.SendMessage(r.Context(), id, body.Content, func(chunk string) {
		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Accel-Buffering", "no")
			wrote = true
		}
		_, _ = io.WriteString(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil && !wrote {
		writeError(w, err)
	}
}

// --- CAM ---

func (s *Server) apiCAMDXF(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductConfigID string `json:"product_config_id"`
		OrderID         string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductConfigID == "" {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "нужно поле product_config_id"})
		return
	}
	job, err := s.cam.CreateDXF(r.Context(), body.ProductConfigID, body.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, job)
}

func (s *Server) apiCAMGCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductConfigID string `json:"product_config_id"`
		DXFJobID        string `json:"dxf_job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductConfigID == "" || body.DXFJobID == "" {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "нужны поля product_config_id и dxf_job_id"})
		return
	}
	job, err := s.cam.CreateGCode(r.Context(), body.ProductConfigID, body.DXFJobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, job)
}

func (s *Server) apiCAMJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, ok := s.cam.Status(jobID)
	if !ok {
		writeJSON(w, 404, map[string]any{"status": "error", "message": "задача не найдена"})
		return
	}
	writeJSON(w, 200, job)
}

// --- hardware / 1C ---

func (s *Server) apiHardwareSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductConfigID string `json:"product_config_id"`
		Material        string `json:"material"`
		ThicknessMM     int    `json:"thickness_mm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "invalid json"})
		return
	}
	sel, err := s.hardware.Select(r.Context(), body.ProductConfigID, domain.Material(body.Material), body.ThicknessMM)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, sel)
}

func (s *Server) api1CExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "invalid json"})
		return
	}
	oneCID, err := s.hardware.ExportTo1C(r.Context(), body.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "one_c_order_id": oneCID})
}

// --- table prefs ---

func (s *Server) apiPrefsGet(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	p, err := s.prefs.Get(r.Context(), s.prefsOwner(w, r), table)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, 200, &domain.TablePrefs{TableID: table})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 200, p)
}

func (s *Server) apiPrefsPut(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	var p domain.TablePrefs
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "invalid json"})
		return
	}
	p.TableID = table
	p.UserEmail = s.prefsOwner(w, r)
	if err := s.prefs.Save(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, p)
}

// --- helpers ---

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, 400, map[string]any{"status": "error", "message": "некорректный идентификатор сессии"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := 500
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = 404
	case errors.Is(err, domain.ErrOutOfRange), errors.Is(err, domain.ErrUnknownField):
		code = 400
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConfirmUnavailable),
		errors.Is(err, domain.ErrCreationInFlight),
		errors.Is(err, domain.ErrGCodeNeedsDXF):
		code = 409
	}
	writeJSON(w, code, map[string]any{"status": "error", "message": err.Error()})
}
