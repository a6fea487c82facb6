package location

import (
	"strings"
)

type Level string

const (
	DistrictPanchayat    Level = "District Panchayat"
	BlockPanchayat       Level = "Block Panchayat"
	GramaPanchayat       Level = "Grama Panchayat"
	Municipality         Level = "Municipality"
	MunicipalCorporation Level = "Municipal Corporation"
)

var Levels = []Level{
	DistrictPanchayat,
	BlockPanchayat,
	GramaPanchayat,
	Municipality,
	MunicipalCorporation,
}

// ParseLevel accepts the display name or its upper snake form
// (GRAMA_PANCHAYAT).
func ParseLevel(value string) (Level, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, level := range Levels {
		if strings.EqualFold(string(level), normalized) {
			return level, true
		}
	}
	return "", false
}

func WardRequired(level Level) bool {
	switch level {
	case GramaPanchayat, Municipality, MunicipalCorporation:
		return true
	default:
		return false
	}
}

func NeedsBlock(level Level) bool {
	return level == GramaPanchayat || level == BlockPanchayat
}

func HasLocalBody(level Level) bool {
	return WardRequired(level)
}

// Source is the hierarchy a Resolver reads from.
type Source interface {
	DistrictNames() []string
	BlocksOf(district string) []string
	MunicipalitiesOf(district string) []string
	CorporationsOf(district string) []string
	PanchayatsOf(district, block string) []string
}

type Resolver struct {
	src Source
}

func NewResolver(src Source) Resolver {
	return Resolver{src: src}
}

func (r Resolver) Districts() []string {
	if r.src == nil {
		return nil
	}
	return nonNil(r.src.DistrictNames())
}

func (r Resolver) Blocks(district string) []string {
	if r.src == nil || district == "" {
		return []string{}
	}
	return nonNil(r.src.BlocksOf(district))
}

// LocalBodies lists the valid local bodies for a level. Missing prerequisites
// give an empty list.
func (r Resolver) LocalBodies(level Level, district, block string) []string {
	if r.src == nil || district == "" {
		return []string{}
	}
	switch level {
	case Municipality:
		return nonNil(r.src.MunicipalitiesOf(district))
	case MunicipalCorporation:
		return nonNil(r.src.CorporationsOf(district))
	case GramaPanchayat:
		if block == "" {
			return []string{}
		}
		return nonNil(r.src.PanchayatsOf(district, block))
	default:
		return []string{}
	}
}

// Options is what a cascading selector needs to render.
type Options struct {
	Districts    []string `json:"districts"`
	Blocks       []string `json:"blocks"`
	LocalBodies  []string `json:"local_bodies"`
	NeedsBlock   bool     `json:"needs_block"`
	HasLocalBody bool     `json:"has_local_body"`
	WardRequired bool     `json:"ward_required"`
}

func (r Resolver) Options(sel Selection) Options {
	return Options{
		Districts:    r.Districts(),
		Blocks:       r.Blocks(sel.District),
		LocalBodies:  r.LocalBodies(sel.Level, sel.District, sel.Block),
		NeedsBlock:   NeedsBlock(sel.Level),
		HasLocalBody: HasLocalBody(sel.Level),
		WardRequired: WardRequired(sel.Level),
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
