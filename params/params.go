// Package params implements the TCS parameter model: JSON parsing tolerant
// of legacy numeric-as-string fields, and validation into an immutable,
// region-keyed configuration consumed by the rest of the pipeline.
package params

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Params is the raw, as-parsed parameter document.
type Params struct {
	PlatformErrorRate float64       `json:"platform_error_rate"`
	PlatformFormat    int           `json:"platform_format"`
	Email             string        `json:"email"`
	PrimerPairs       []RegionParams `json:"primer_pairs"`
}

// RegionParams is one region's raw, as-parsed configuration.
type RegionParams struct {
	Region        string  `json:"region"`
	Forward       string  `json:"forward"`
	CDNA          string  `json:"cdna"`
	Majority      float64 `json:"majority"`
	EndJoin       bool    `json:"end_join"`
	EndJoinOption int     `json:"end_join_option"`
	Overlap       int     `json:"overlap"`
	TcsQC         bool    `json:"tcs_qc"`
	RefGenome     string  `json:"ref_genome"`
	RefStart      int     `json:"ref_start"`
	RefStartLower *int    `json:"ref_start_lower"`
	RefEnd        int     `json:"ref_end"`
	RefEndLower   *int    `json:"ref_end_lower"`
	Indel         bool    `json:"indel"`
	Trim          bool    `json:"trim"`
	TrimRef       string  `json:"trim_ref"`
	TrimRefStart  *int    `json:"trim_ref_start"`
	TrimRefEnd    *int    `json:"trim_ref_end"`
}

// rawDoc/rawRegion mirror Params/RegionParams but with numeric fields typed
// as json.RawMessage and aliased keys as pointers so tolerant custom unmarshaling
// can be applied uniformly, matching the original's string_or_number_to_*
// deserializers (numeric-as-string, empty string => zero value).
type rawDoc struct {
	PlatformErrorRate json.RawMessage `json:"platform_error_rate"`
	PlatformFormat    json.RawMessage `json:"platform_format"`
	Email             *string         `json:"email"`
	EmailAlias1       *string         `json:"Email"`
	EmailAlias2       *string         `json:"EMAIL"`
	PrimerPairs       []rawRegion     `json:"primer_pairs"`
}

type rawRegion struct {
	Region        string          `json:"region"`
	Forward       string          `json:"forward"`
	CDNA          string          `json:"cdna"`
	Majority      json.RawMessage `json:"majority"`
	EndJoin       bool            `json:"end_join"`
	EndJoinOption json.RawMessage `json:"end_join_option"`
	Overlap       json.RawMessage `json:"overlap"`
	TcsQC         *bool           `json:"tcs_qc"`
	TcsQCAlias1   *bool           `json:"TCS_qc"`
	TcsQCAlias2   *bool           `json:"TCS_QC"`
	RefGenome     string          `json:"ref_genome"`
	RefStart      json.RawMessage `json:"ref_start"`
	RefStartLower json.RawMessage `json:"ref_start_lower"`
	RefEnd        json.RawMessage `json:"ref_end"`
	RefEndLower   json.RawMessage `json:"ref_end_lower"`
	Indel         bool            `json:"indel"`
	Trim          bool            `json:"trim"`
	TrimRef       string          `json:"trim_ref"`
	TrimRefStart  json.RawMessage `json:"trim_ref_start"`
	TrimRefEnd    json.RawMessage `json:"trim_ref_end"`
}

// ParseJSON parses a parameter document, tolerant of numeric fields encoded
// as JSON strings (including the empty string, which maps to the zero
// value) and of the legacy "TCS_qc"/"Email" key aliases.
func ParseJSON(data []byte) (Params, error) {
	var raw rawDoc
	if err := json.Unmarshal(data, &raw); err != nil {
		return Params{}, errors.Wrap(err, "parsing parameter document")
	}

	p := Params{
		Email: firstNonNilString(raw.Email, raw.EmailAlias1, raw.EmailAlias2),
	}
	var err error
	if p.PlatformErrorRate, err = numberOrStringToFloat(raw.PlatformErrorRate); err != nil {
		return Params{}, err
	}
	if p.PlatformFormat, err = numberOrStringToInt(raw.PlatformFormat); err != nil {
		return Params{}, err
	}

	for _, r := range raw.PrimerPairs {
		region, err := parseRegion(r)
		if err != nil {
			return Params{}, err
		}
		p.PrimerPairs = append(p.PrimerPairs, region)
	}
	return p, nil
}

func parseRegion(r rawRegion) (RegionParams, error) {
	region := RegionParams{
		Region:    r.Region,
		Forward:   r.Forward,
		CDNA:      r.CDNA,
		EndJoin:   r.EndJoin,
		TcsQC:     firstNonNilBool(r.TcsQC, r.TcsQCAlias1, r.TcsQCAlias2),
		RefGenome: r.RefGenome,
		Indel:     r.Indel,
		Trim:      r.Trim,
		TrimRef:   r.TrimRef,
	}
	var err error
	if region.Majority, err = numberOrStringToFloat(r.Majority); err != nil {
		return RegionParams{}, err
	}
	if region.EndJoinOption, err = numberOrStringToInt(r.EndJoinOption); err != nil {
		return RegionParams{}, err
	}
	if region.Overlap, err = numberOrStringToInt(r.Overlap); err != nil {
		return RegionParams{}, err
	}
	if region.RefStart, err = numberOrStringToInt(r.RefStart); err != nil {
		return RegionParams{}, err
	}
	if region.RefEnd, err = numberOrStringToInt(r.RefEnd); err != nil {
		return RegionParams{}, err
	}
	if region.RefStartLower, err = numberOrStringToOptionInt(r.RefStartLower); err != nil {
		return RegionParams{}, err
	}
	if region.RefEndLower, err = numberOrStringToOptionInt(r.RefEndLower); err != nil {
		return RegionParams{}, err
	}
	if region.TrimRefStart, err = numberOrStringToOptionInt(r.TrimRefStart); err != nil {
		return RegionParams{}, err
	}
	if region.TrimRefEnd, err = numberOrStringToOptionInt(r.TrimRefEnd); err != nil {
		return RegionParams{}, err
	}
	return region, nil
}

func firstNonNilString(ss ...*string) string {
	for _, s := range ss {
		if s != nil {
			return *s
		}
	}
	return ""
}

func firstNonNilBool(bs ...*bool) bool {
	for _, b := range bs {
		if b != nil {
			return *b
		}
	}
	return false
}

func numberOrStringToFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, nil
		}
		return f, nil
	}
	return 0, nil
}

func numberOrStringToInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, nil
		}
		return n, nil
	}
	return 0, nil
}

func numberOrStringToOptionInt(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, nil
		}
		return &n, nil
	}
	return nil, nil
}
