package domain

import (
	"context"
	"io"
)

// ExtractRequest carries one uploaded sketch to the spec-extraction service.
type ExtractRequest struct {
	ImageBase64   string `json:"image_base64"`
	ImageMimeType string `json:"image_mime_type"`
	LanguageHint  string `json:"language_hint,omitempty"`
}

// ExtractResult mirrors the backend response. Success=false or a transport
// error both send the wizard back to upload.
type ExtractResult struct {
	Success            bool             `json:"success"`
	Parameters         *ExtractedParams `json:"parameters,omitempty"`
	OCRConfidence      float64          `json:"ocr_confidence"`
	FallbackToDialogue bool             `json:"fallback_to_dialogue"`
	DialoguePrompt     string           `json:"dialogue_prompt,omitempty"`
	ProcessingTimeMS   int64            `json:"processing_time_ms"`
	Error              string           `json:"error,omitempty"`
}

type OrderRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Spec        string `json:"spec,omitempty"`
	CustomerRef string `json:"customer_ref,omitempty"`
	Notes       string `json:"notes,omitempty"`
	// Anonymous routes the request to /orders/anonymous for visitors
	// without a signed-in session.
	Anonymous bool `json:"-"`
}

type BOMRequest struct {
	OrderID     string      `json:"order_id"`
	CabinetType CabinetType `json:"cabinet_type"`
	WidthMM     int         `json:"width_mm"`
	HeightMM    int         `json:"height_mm"`
	DepthMM     int         `json:"depth_mm"`
	Material    Material    `json:"material"`
	ShelfCount  int         `json:"shelf_count"`
	DoorCount   int         `json:"door_count"`
	DrawerCount int         `json:"drawer_count"`
}

type CAMJobRequest struct {
	Kind            CAMJobKind `json:"-"`
	ProductConfigID string     `json:"product_config_id"`
	OrderID         string     `json:"order_id,omitempty"`
	DXFJobID        string     `json:"dxf_job_id,omitempty"`
	Context         string     `json:"context,omitempty"`
}

type HardwareRequest struct {
	ProductConfigID string   `json:"product_config_id"`
	Material        Material `json:"material,omitempty"`
	ThicknessMM     int      `json:"thickness_mm,omitempty"`
}

// Backend is the contract of the external manufacturing API. All heavy
// lifting (OCR, RAG, CAM, 1C) happens on the other side of it.
type Backend interface {
	ExtractFromImage(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
	GenerateBOM(ctx context.Context, req BOMRequest) (string, error)
	// ClarifyStream requests one assistant turn; the body is plain text
	// delivered in chunks and must be closed by the caller.
	ClarifyStream(ctx context.Context, orderID string, messages []ChatMessage) (io.ReadCloser, error)
	CreateCAMJob(ctx context.Context, req CAMJobRequest) (*CAMJob, error)
	JobStatus(ctx context.Context, jobID string) (*CAMJob, error)
	SelectHardware(ctx context.Context, req HardwareRequest) (*HardwareSelection, error)
	ExportTo1C(ctx context.Context, orderID string) (string, error)
}
