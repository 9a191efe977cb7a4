package domain

import "fmt"

// PartCounts derives the shelf/door/drawer layout the BOM generator expects
// from the cabinet type. The numbers match the product templates of the
// backend; the front-end only needs them to fill the generate request.
type PartCounts struct {
	ShelfCount  int `json:"shelf_count"`
	DoorCount   int `json:"door_count"`
	DrawerCount int `json:"drawer_count"`
}

func PartCountsFor(ct CabinetType) PartCounts {
	switch ct {
	case CabinetWall:
		return PartCounts{ShelfCount: 2, DoorCount: 2}
	case CabinetBase:
		return PartCounts{ShelfCount: 1, DoorCount: 2}
	case CabinetBaseSink:
		return PartCounts{DoorCount: 2}
	case CabinetDrawer:
		return PartCounts{DrawerCount: 3}
	case CabinetTall:
		return PartCounts{ShelfCount: 4, DoorCount: 2}
	}
	return PartCounts{}
}

// BOMItem is one panel row of the cut list shown on the review page and in
// the spreadsheet export. Dimensions are the finished panel sizes.
type BOMItem struct {
	Name        string   `json:"name"`
	WidthMM     int      `json:"width_mm"`
	HeightMM    int      `json:"height_mm"`
	Qty         int      `json:"qty"`
	Material    Material `json:"material"`
	ThicknessMM int      `json:"thickness_mm"`
}

// CutList derives the panel breakdown of a cabinet from its confirmed
// parameters. The authoritative BOM lives in the backend; this list backs
// the review table and the xlsx export.
func CutList(p DraftParams) []BOMItem {
	t := p.ThicknessMM
	counts := PartCountsFor(p.CabinetType)
	items := []BOMItem{
		{Name: "Боковина", WidthMM: p.DepthMM, HeightMM: p.HeightMM, Qty: 2, Material: p.Material, ThicknessMM: t},
		{Name: "Горизонт", WidthMM: p.WidthMM - 2*t, HeightMM: p.DepthMM, Qty: 2, Material: p.Material, ThicknessMM: t},
		{Name: "Задняя стенка", WidthMM: p.WidthMM, HeightMM: p.HeightMM, Qty: 1, Material: p.Material, ThicknessMM: 4},
	}
	if counts.ShelfCount > 0 {
		items = append(items, BOMItem{Name: "Полка", WidthMM: p.WidthMM - 2*t, HeightMM: p.DepthMM - 20, Qty: counts.ShelfCount, Material: p.Material, ThicknessMM: t})
	}
	if counts.DoorCount > 0 {
		items = append(items, BOMItem{Name: "Фасад", WidthMM: p.WidthMM / counts.DoorCount, HeightMM: p.HeightMM, Qty: counts.DoorCount, Material: p.Material, ThicknessMM: t})
	}
	if counts.DrawerCount > 0 {
		h := p.HeightMM / counts.DrawerCount
		items = append(items, BOMItem{Name: "Фасад ящика", WidthMM: p.WidthMM, HeightMM: h, Qty: counts.DrawerCount, Material: p.Material, ThicknessMM: t})
		items = append(items, BOMItem{Name: "Дно ящика", WidthMM: p.WidthMM - 2*t - 26, HeightMM: p.DepthMM - 50, Qty: counts.DrawerCount, Material: p.Material, ThicknessMM: 4})
	}
	return items
}

// HardwareItem is one row of the backend's RAG hardware selection.
type HardwareItem struct {
	HardwareItemID string `json:"hardware_item_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name,omitempty"`
	Quantity       int    `json:"quantity"`
	Supplier       string `json:"supplier,omitempty"`
	Version        string `json:"version,omitempty"`
}

type HardwareSelection struct {
	BOMID string         `json:"bom_id"`
	Items []HardwareItem `json:"items"`
}

// CabinetTitle builds the human order name shown in listings.
func CabinetTitle(p DraftParams) string {
	names := map[CabinetType]string{
		CabinetWall:     "Навесной шкаф",
		CabinetBase:     "Напольный шкаф",
		CabinetBaseSink: "Шкаф под мойку",
		CabinetDrawer:   "Шкаф с ящиками",
		CabinetTall:     "Пенал",
	}
	name := names[p.CabinetType]
	if name == "" {
		name = "Шкаф"
	}
	return fmt.Sprintf("%s %d×%d×%d мм, %s %d мм", name, p.WidthMM, p.HeightMM, p.DepthMM, p.Material, p.ThicknessMM)
}
