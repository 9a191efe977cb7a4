package httpserver

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// apiBOMExport renders the session's cut list as an .xlsx download for the
// workshop. The authoritative BOM lives in the backend; this sheet is the
// review-table snapshot.
func (s *Server) apiBOMExport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	params, err := s.wizard.Params(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if params.CabinetType == "" {
		writeJSON(w, 409, map[string]any{"status": "error", "message": "не выбран тип шкафа"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Спецификация"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Деталь", "Ширина, мм", "Высота, мм", "Кол-во", "Материал", "Толщина, мм"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for row, item := range domain.CutList(params) {
		values := []any{item.Name, item.WidthMM, item.HeightMM, item.Qty, string(item.Material), item.ThicknessMM}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 22)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bom-%s.xlsx", id.String()[:8]))
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Str("session", id.String()).Msg("bom export write failed")
	}
}
