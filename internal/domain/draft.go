package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type CabinetType string

const (
	CabinetWall     CabinetType = "wall"
	CabinetBase     CabinetType = "base"
	CabinetBaseSink CabinetType = "base_sink"
	CabinetDrawer   CabinetType = "drawer"
	CabinetTall     CabinetType = "tall"
)

func ParseCabinetType(s string) (CabinetType, error) {
	switch CabinetType(strings.TrimSpace(s)) {
	case CabinetWall, CabinetBase, CabinetBaseSink, CabinetDrawer, CabinetTall:
		return CabinetType(strings.TrimSpace(s)), nil
	}
	return "", fmt.Errorf("тип шкафа %q: %w", s, ErrOutOfRange)
}

type Material string

const (
	MaterialLDSP    Material = "ЛДСП"
	MaterialMDF     Material = "МДФ"
	MaterialPlywood Material = "Фанера"
)

func ParseMaterial(s string) (Material, error) {
	switch Material(strings.TrimSpace(s)) {
	case MaterialLDSP, MaterialMDF, MaterialPlywood:
		return Material(strings.TrimSpace(s)), nil
	}
	return "", fmt.Errorf("материал %q: %w", s, ErrOutOfRange)
}

// Dimension bounds in millimeters.
const (
	MinWidthMM  = 100
	MaxWidthMM  = 3000
	MinHeightMM = 100
	MaxHeightMM = 3000
	MinDepthMM  = 100
	MaxDepthMM  = 1200
)

var validThickness = map[int]bool{16: true, 18: true, 22: true}

type FieldKey string

const (
	FieldCabinetType FieldKey = "cabinet_type"
	FieldWidthMM     FieldKey = "width_mm"
	FieldHeightMM    FieldKey = "height_mm"
	FieldDepthMM     FieldKey = "depth_mm"
	FieldMaterial    FieldKey = "material"
	FieldThicknessMM FieldKey = "thickness_mm"
)

// FieldOrder is the canonical field order used by prompts and exports.
var FieldOrder = []FieldKey{
	FieldCabinetType,
	FieldWidthMM,
	FieldHeightMM,
	FieldDepthMM,
	FieldMaterial,
	FieldThicknessMM,
}

type FieldSource string

const (
	SourceDefault    FieldSource = "default"
	SourceAIExtract  FieldSource = "ai_extracted"
	SourceUserEdited FieldSource = "user_edited"
)

// DraftParams is the in-progress set of cabinet parameters. Zero values for
// CabinetType and the dimensions mean "not set yet"; Material and Thickness
// always carry a value because they have product defaults.
type DraftParams struct {
	CabinetType CabinetType `json:"cabinet_type"`
	WidthMM     int         `json:"width_mm"`
	HeightMM    int         `json:"height_mm"`
	DepthMM     int         `json:"depth_mm"`
	Material    Material    `json:"material"`
	ThicknessMM int         `json:"thickness_mm"`
}

// ExtractedParams is the typed partial record the backend returns from image
// analysis or the assistant suggests during clarification. Unknown keys are
// dropped at decode time; absent fields stay nil.
type ExtractedParams struct {
	CabinetType *string `json:"cabinet_type,omitempty"`
	WidthMM     *int    `json:"width_mm,omitempty"`
	HeightMM    *int    `json:"height_mm,omitempty"`
	DepthMM     *int    `json:"depth_mm,omitempty"`
	Material    *string `json:"material,omitempty"`
	ThicknessMM *int    `json:"thickness_mm,omitempty"`
}

// Draft couples the parameter values with per-field provenance. Every field
// always has exactly one source entry; values and sources change together.
type Draft struct {
	Params  DraftParams
	Sources map[FieldKey]FieldSource
}

func NewDraft() *Draft {
	d := &Draft{
		Params: DraftParams{
			Material:    MaterialLDSP,
			ThicknessMM: 16,
		},
		Sources: make(map[FieldKey]FieldSource, len(FieldOrder)),
	}
	for _, k := range FieldOrder {
		d.Sources[k] = SourceDefault
	}
	return d
}

// SetField validates raw and, if it passes, stores the value and the source
// atomically. Invalid input leaves both untouched.
func (d *Draft) SetField(key FieldKey, raw string, source FieldSource) error {
	switch key {
	case FieldCabinetType:
		ct, err := ParseCabinetType(raw)
		if err != nil {
			return err
		}
		d.Params.CabinetType = ct
	case FieldWidthMM:
		v, err := parseDimension(key, raw, MinWidthMM, MaxWidthMM)
		if err != nil {
			return err
		}
		d.Params.WidthMM = v
	case FieldHeightMM:
		v, err := parseDimension(key, raw, MinHeightMM, MaxHeightMM)
		if err != nil {
			return err
		}
		d.Params.HeightMM = v
	case FieldDepthMM:
		v, err := parseDimension(key, raw, MinDepthMM, MaxDepthMM)
		if err != nil {
			return err
		}
		d.Params.DepthMM = v
	case FieldMaterial:
		m, err := ParseMaterial(raw)
		if err != nil {
			return err
		}
		d.Params.Material = m
	case FieldThicknessMM:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !validThickness[v] {
			return fmt.Errorf("толщина %q (допустимо 16, 18, 22): %w", raw, ErrOutOfRange)
		}
		d.Params.ThicknessMM = v
	default:
		return fmt.Errorf("%q: %w", key, ErrUnknownField)
	}
	d.Sources[key] = source
	return nil
}

// MergeExtracted applies AI-suggested values field by field. A field the user
// already edited is never overwritten: the incoming value is discarded and
// the user_edited mark stays. Invalid suggested values are skipped the same
// way out-of-range input is rejected anywhere else. Returns the number of
// fields actually applied.
func (d *Draft) MergeExtracted(p ExtractedParams) int {
	applied := 0
	merge := func(key FieldKey, raw string) {
		if d.Sources[key] == SourceUserEdited {
			return
		}
		if err := d.SetField(key, raw, SourceAIExtract); err == nil {
			applied++
		}
	}
	if p.CabinetType != nil {
		merge(FieldCabinetType, *p.CabinetType)
	}
	if p.WidthMM != nil {
		merge(FieldWidthMM, strconv.Itoa(*p.WidthMM))
	}
	if p.HeightMM != nil {
		merge(FieldHeightMM, strconv.Itoa(*p.HeightMM))
	}
	if p.DepthMM != nil {
		merge(FieldDepthMM, strconv.Itoa(*p.DepthMM))
	}
	if p.Material != nil {
		merge(FieldMaterial, *p.Material)
	}
	if p.ThicknessMM != nil {
		merge(FieldThicknessMM, strconv.Itoa(*p.ThicknessMM))
	}
	return applied
}

func (d *Draft) RecognizedCount() int { return d.countSource(SourceAIExtract) }
func (d *Draft) DefaultCount() int    { return d.countSource(SourceDefault) }
func (d *Draft) UserEditedCount() int { return d.countSource(SourceUserEdited) }
func (d *Draft) TotalFieldCount() int { return len(FieldOrder) }

func (d *Draft) countSource(s FieldSource) int {
	n := 0
	for _, k := range FieldOrder {
		if d.Sources[k] == s {
			n++
		}
	}
	return n
}

// MissingFields returns, in canonical order, the fields still carrying their
// default source, i.e. neither recognized nor confirmed by the user.
func (d *Draft) MissingFields() []FieldKey {
	out := []FieldKey{}
	for _, k := range FieldOrder {
		if d.Sources[k] == SourceDefault {
			out = append(out, k)
		}
	}
	return out
}

func parseDimension(key FieldKey, raw string, min, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s=%q не число: %w", key, raw, ErrOutOfRange)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s=%d вне диапазона [%d, %d]: %w", key, v, min, max, ErrOutOfRange)
	}
	return v, nil
}
