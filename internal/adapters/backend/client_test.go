package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

func TestExtractFromImage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"parameters": map[string]any{
				"cabinet_type": "wall",
				"width_mm":     600,
			},
			"ocr_confidence":     0.87,
			"processing_time_ms": 1200,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	res, err := c.ExtractFromImage(context.Background(), domain.ExtractRequest{
		ImageBase64:   "aGVsbG8=",
		ImageMimeType: "image/png",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/spec/extract-from-image", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "ru", gotBody["language_hint"])

	assert.True(t, res.Success)
	require.NotNil(t, res.Parameters)
	require.NotNil(t, res.Parameters.CabinetType)
	assert.Equal(t, "wall", *res.Parameters.CabinetType)
	require.NotNil(t, res.Parameters.WidthMM)
	assert.Equal(t, 600, *res.Parameters.WidthMM)
	assert.InDelta(t, 0.87, res.OCRConfidence, 1e-9)
}

func TestErrorBodyMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "image too large"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.ExtractFromImage(context.Background(), domain.ExtractRequest{ImageBase64: "aGVsbG8="})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image too large")
	assert.Contains(t, err.Error(), "422")
}

func TestCreateOrderRoutesAnonymous(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "order-42"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	id, err := c.CreateOrder(context.Background(), domain.OrderRequest{Name: "Шкаф", Anonymous: true})
	require.NoError(t, err)
	assert.Equal(t, "order-42", id)

	_, err = c.CreateOrder(context.Background(), domain.OrderRequest{Name: "Шкаф", CustomerRef: "u@example.com"})
	require.NoError(t, err)

	require.Equal(t, []string{"/api/v1/orders/anonymous", "/api/v1/orders"}, paths)
}

func TestCreateOrderRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.CreateOrder(context.Background(), domain.OrderRequest{})
	require.Error(t, err)
}

func TestGenerateBOMAcceptsEitherIDKey(t *testing.T) {
	body := map[string]string{"bom_id": "bom-7"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	id, err := c.GenerateBOM(context.Background(), domain.BOMRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "bom-7", id)

	body = map[string]string{"id": "bom-8"}
	id, err = c.GenerateBOM(context.Background(), domain.BOMRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "bom-8", id)
}

func TestClarifyStreamWireFormatAndChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderID  string `json:"order_id"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.OrderID)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "user", req.Messages[1].Role)

		fl := w.(http.Flusher)
		_, _ = w.Write([]byte("Какая "))
		fl.Flush()
		_, _ = w.Write([]byte("глубина?"))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	stream, err := c.ClarifyStream(context.Background(), "sess-1", []domain.ChatMessage{
		domain.NewChatMessage(domain.RoleAssistant, "Здравствуйте!"),
		domain.NewChatMessage(domain.RoleUser, "Нужен шкаф"),
	})
	require.NoError(t, err)
	defer stream.Close()

	all, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "Какая глубина?", string(all))
}

func TestClarifyStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dialogue unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.ClarifyStream(context.Background(), "sess-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCreateCAMJobPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/v1/cam/dxf" {
			_ = json.NewEncoder(w).Encode(map[string]string{"dxf_job_id": "dxf-1", "status": "Created"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"gcode_job_id": "gcode-1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	dxf, err := c.CreateCAMJob(context.Background(), domain.CAMJobRequest{Kind: domain.JobKindDXF, ProductConfigID: "cfg-1"})
	require.NoError(t, err)
	assert.Equal(t, "dxf-1", dxf.JobID)
	assert.Equal(t, domain.JobCreated, dxf.Status)

	gcode, err := c.CreateCAMJob(context.Background(), domain.CAMJobRequest{Kind: domain.JobKindGCode, ProductConfigID: "cfg-1", DXFJobID: "dxf-1"})
	require.NoError(t, err)
	assert.Equal(t, "gcode-1", gcode.JobID)
	assert.Equal(t, domain.JobKindGCode, gcode.Kind)
	// missing status defaults to Created
	assert.Equal(t, domain.JobCreated, gcode.Status)

	assert.Equal(t, []string{"/api/v1/cam/dxf", "/api/v1/cam/gcode"}, paths)
}

func TestJobStatusDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cam/jobs/dxf-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"job_id":   "dxf-1",
			"job_kind": "DXF",
			"status":   "Failed",
			"error":    "invalid geometry",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	job, err := c.JobStatus(context.Background(), "dxf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, "invalid geometry", job.Error)
	assert.True(t, job.Status.Terminal())
}

func TestSelectHardwareCriteria(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductConfigID string `json:"product_config_id"`
			Criteria        struct {
				Material  string `json:"material"`
				Thickness int    `json:"thickness"`
			} `json:"criteria"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ЛДСП", req.Criteria.Material)
		assert.Equal(t, 18, req.Criteria.Thickness)
		_ = json.NewEncoder(w).Encode(domain.HardwareSelection{
			BOMID: "bom-1",
			Items: []domain.HardwareItem{{SKU: "HNG-110", Quantity: 4}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	sel, err := c.SelectHardware(context.Background(), domain.HardwareRequest{
		ProductConfigID: "cfg-1",
		Material:        domain.MaterialLDSP,
		ThicknessMM:     18,
	})
	require.NoError(t, err)
	require.Len(t, sel.Items, 1)
	assert.Equal(t, "HNG-110", sel.Items[0].SKU)
}

func TestExportTo1C(t *testing.T) {
	response := map[string]any{"success": true, "one_c_order_id": "1c-99"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	id, err := c.ExportTo1C(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "1c-99", id)

	// success=false with 200 still fails
	response = map[string]any{"success": false, "error": "1С недоступна"}
	_, err = c.ExportTo1C(context.Background(), "order-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1С недоступна")
}
