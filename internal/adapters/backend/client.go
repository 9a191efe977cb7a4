package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// Client is the HTTP adapter for the manufacturing backend API. One instance
// is shared by all usecases; it is safe for concurrent use.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	streamClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		// Timeout covers the whole body read, so dialogue streams go
		// through streamClient and rely on the caller's context instead.
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	defer res.Body.Close()
	log.Debug().Str("path", path).Int("status", res.StatusCode).Dur("elapsed", time.Since(start)).Msg("backend call")
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		var ae apiError
		if jerr := json.Unmarshal(raw, &ae); jerr == nil {
			msg := ae.Message
			if msg == "" {
				msg = ae.Error
			}
			if msg == "" {
				msg = ae.Detail
			}
			if msg != "" {
				return fmt.Errorf("backend %s status %d: %s", path, res.StatusCode, msg)
			}
		}
		return fmt.Errorf("backend %s status %d: %s", path, res.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) ExtractFromImage(ctx context.Context, req domain.ExtractRequest) (*domain.ExtractResult, error) {
	if req.LanguageHint == "" {
		req.LanguageHint = "ru"
	}
	var out domain.ExtractResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/spec/extract-from-image", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	path := "/api/v1/orders"
	if req.Anonymous {
		path = "/api/v1/orders/anonymous"
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("backend вернул заказ без id")
	}
	return out.ID, nil
}

func (c *Client) GenerateBOM(ctx context.Context, req domain.BOMRequest) (string, error) {
	var out struct {
		BOMID string `json:"bom_id"`
		ID    string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/bom/generate", req, &out); err != nil {
		return "", err
	}
	if out.BOMID != "" {
		return out.BOMID, nil
	}
	return out.ID, nil
}

// ClarifyStream requests one assistant turn. The response body is a plain
// text stream; the caller reads it incrementally and must close it. No
// client timeout here: the stream lives as long as the caller's context.
func (c *Client) ClarifyStream(ctx context.Context, orderID string, messages []domain.ChatMessage) (io.ReadCloser, error) {
	type wireMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	body := struct {
		OrderID  string    `json:"order_id"`
		Messages []wireMsg `json:"messages"`
	}{OrderID: orderID}
	for _, m := range messages {
		body.Messages = append(body.Messages, wireMsg{Role: string(m.Role), Content: m.Content})
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/dialogue/clarify", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend dialogue: %w", err)
	}
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		res.Body.Close()
		return nil, fmt.Errorf("backend dialogue status %d: %s", res.StatusCode, string(raw))
	}
	return res.Body, nil
}

func (c *Client) CreateCAMJob(ctx context.Context, req domain.CAMJobRequest) (*domain.CAMJob, error) {
	path := "/api/v1/cam/dxf"
	if req.Kind == domain.JobKindGCode {
		path = "/api/v1/cam/gcode"
	}
	var out struct {
		DXFJobID   string `json:"dxf_job_id"`
		GCodeJobID string `json:"gcode_job_id"`
		Status     string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	id := out.DXFJobID
	if req.Kind == domain.JobKindGCode {
		id = out.GCodeJobID
	}
	if id == "" {
		return nil, errors.New("backend вернул CAM-задачу без id")
	}
	status := domain.CAMJobStatus(out.Status)
	if status == "" {
		status = domain.JobCreated
	}
	return &domain.CAMJob{JobID: id, Kind: req.Kind, Status: status}, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.CAMJob, error) {
	var out struct {
		JobID      string `json:"job_id"`
		JobKind    string `json:"job_kind"`
		Status     string `json:"status"`
		ArtifactID string `json:"artifact_id"`
		Error      string `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/cam/jobs/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	return &domain.CAMJob{
		JobID:      out.JobID,
		Kind:       domain.CAMJobKind(out.JobKind),
		Status:     domain.CAMJobStatus(out.Status),
		ArtifactID: out.ArtifactID,
		Error:      out.Error,
	}, nil
}

func (c *Client) SelectHardware(ctx context.Context, req domain.HardwareRequest) (*domain.HardwareSelection, error) {
	body := struct {
		ProductConfigID string `json:"product_config_id"`
		Criteria        struct {
			Material  string `json:"material,omitempty"`
			Thickness int    `json:"thickness,omitempty"`
		} `json:"criteria"`
	}{ProductConfigID: req.ProductConfigID}
	body.Criteria.Material = string(req.Material)
	body.Criteria.Thickness = req.ThicknessMM
	var out domain.HardwareSelection
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/hardware/select", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExportTo1C(ctx context.Context, orderID string) (string, error) {
	body := map[string]string{"order_id": orderID}
	var out struct {
		Success    bool   `json:"success"`
		OneCID     string `json:"one_c_order_id"`
		Error      string `json:"error"`
		ErrMessage string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/integrations/1c/export", body, &out); err != nil {
		return "", err
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = out.ErrMessage
		}
		if msg == "" {
			msg = "экспорт в 1С отклонён"
		}
		return "", errors.New(msg)
	}
	return out.OneCID, nil
}

var _ domain.Backend = (*Client)(nil)
