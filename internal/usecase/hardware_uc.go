package usecase

import (
	"context"
	"fmt"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// HardwareUC covers the post-confirm steps: RAG hardware selection and the
// 1C export, both thin calls into the backend.
type HardwareUC struct {
	backend domain.Backend
}

func NewHardwareUC(b domain.Backend) *HardwareUC {
	return &HardwareUC{backend: b}
}

func (uc *HardwareUC) Select(ctx context.Context, productConfigID string, material domain.Material, thicknessMM int) (*domain.HardwareSelection, error) {
	if productConfigID == "" {
		return nil, fmt.Errorf("product_config_id: %w", domain.ErrOutOfRange)
	}
	sel, err := uc.backend.SelectHardware(ctx, domain.HardwareRequest{
		ProductConfigID: productConfigID,
		Material:        material,
		ThicknessMM:     thicknessMM,
	})
	if err != nil {
		return nil, fmt.Errorf("подбор фурнитуры: %w", err)
	}
	return sel, nil
}

func (uc *HardwareUC) ExportTo1C(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("order_id: %w", domain.ErrOutOfRange)
	}
	oneCID, err := uc.backend.ExportTo1C(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("экспорт в 1С: %w", err)
	}
	return oneCID, nil
}
