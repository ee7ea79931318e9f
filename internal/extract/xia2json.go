package extract

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/buger/jsonparser"

	"xia2pipe/internal/config"
)

// Keys of the xia2 scaler statistics dictionary.
const (
	statHighResolution = "High resolution limit"
	statLowResolution  = "Low resolution limit"
	statCompleteness   = "Completeness"
	statMultiplicity   = "Multiplicity"
	statISigma         = "I/sigma"
	statCCHalf         = "CC half"
	statRmerge         = "Rmerge(I)"
)

// xia2Summary is the subset of xia2.json used for a reduction record.
type xia2Summary struct {
	Crystal       string
	StatisticsKey string
	Candidates    int
	Stats         map[string]float64
	Cell          []float64
	SpaceGroup    string
}

// sanitizeJSON quotes the bare NaN, Infinity and -Infinity tokens that
// Python's json module emits so a strict parser accepts the document.
func sanitizeJSON(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if token := bareToken(data[i:]); token != "" {
			out.WriteByte('"')
			out.WriteString(token)
			out.WriteByte('"')
			i += len(token) - 1
			continue
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

func bareToken(rest []byte) string {
	for _, token := range []string{"NaN", "Infinity", "-Infinity"} {
		if bytes.HasPrefix(rest, []byte(token)) {
			return token
		}
	}
	return ""
}

// parseXia2JSON walks _crystals -> <crystal> -> _scaler. In first mode
// the first crystal and the first statistics block in stored order are used.
// In crystal mode the crystal entry and the statistics block must name
// crystal.
func parseXia2JSON(data []byte, crystal, mode string) (*xia2Summary, error) {
	data = sanitizeJSON(data)

	crystals, dataType, _, err := jsonparser.Get(data, "_crystals")
	if err != nil || dataType != jsonparser.Object {
		return nil, fmt.Errorf("%w: xia2.json has no _crystals object", ErrParseFailure)
	}

	var (
		crystalName string
		crystalData []byte
	)
	err = jsonparser.ObjectEach(crystals, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		if crystalData != nil || vt != jsonparser.Object {
			return nil
		}
		name, perr := jsonparser.ParseString(key)
		if perr != nil {
			return perr
		}
		if mode == config.SelectionCrystal && name != crystal {
			return nil
		}
		crystalName, crystalData = name, value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read _crystals: %v", ErrParseFailure, err)
	}
	if crystalData == nil {
		if mode == config.SelectionCrystal {
			return nil, fmt.Errorf("%w: xia2.json has no crystal %q", ErrParseFailure, crystal)
		}
		return nil, fmt.Errorf("%w: xia2.json lists no crystals", ErrParseFailure)
	}

	scaler, dataType, _, err := jsonparser.Get(crystalData, "_scaler")
	if err != nil || dataType != jsonparser.Object {
		return nil, fmt.Errorf("%w: crystal %q has no _scaler", ErrParseFailure, crystalName)
	}

	summary := &xia2Summary{Crystal: crystalName, Stats: make(map[string]float64)}
	var statsBlock []byte
	err = jsonparser.ObjectEach(scaler, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		if vt != jsonparser.Object {
			return nil
		}
		name, perr := jsonparser.ParseString(key)
		if perr != nil {
			return perr
		}
		summary.Candidates++
		if statsBlock != nil {
			return nil
		}
		if mode == config.SelectionCrystal && !strings.Contains(name, `"`+crystal+`"`) {
			return nil
		}
		summary.StatisticsKey, statsBlock = name, value
		return nil
	}, "_scalr_statistics")
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return nil, fmt.Errorf("%w: crystal %q has no _scalr_statistics", ErrParseFailure, crystalName)
		}
		return nil, fmt.Errorf("%w: read _scalr_statistics: %v", ErrParseFailure, err)
	}
	if statsBlock == nil {
		return nil, fmt.Errorf("%w: no statistics block for crystal %q", ErrParseFailure, crystal)
	}

	for _, key := range []string{statHighResolution, statCompleteness, statMultiplicity, statISigma, statCCHalf, statRmerge} {
		value, err := overallValue(statsBlock, key)
		if err != nil {
			return nil, fmt.Errorf("%w: statistic %q: %v", ErrParseFailure, key, err)
		}
		summary.Stats[key] = value
	}
	if value, err := overallValue(statsBlock, statLowResolution); err == nil {
		summary.Stats[statLowResolution] = value
	}

	_, err = jsonparser.ArrayEach(scaler, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		f, perr := parseNumber(value, vt)
		if perr != nil {
			return
		}
		summary.Cell = append(summary.Cell, f)
	}, "_scalr_cell")
	if err != nil || len(summary.Cell) != 6 {
		return nil, fmt.Errorf("%w: _scalr_cell must hold six numbers", ErrParseFailure)
	}

	if sg, err := jsonparser.GetString(scaler, "_scalr_likely_spacegroups", "[0]"); err == nil {
		summary.SpaceGroup = strings.TrimSpace(sg)
	}
	return summary, nil
}

// overallValue reads a statistic whose value is either a scalar or the list
// [overall, low, high]; the overall value is returned.
func overallValue(block []byte, key string) (float64, error) {
	value, vt, _, err := jsonparser.Get(block, key)
	if err != nil {
		return 0, err
	}
	if vt == jsonparser.Array {
		value, vt, _, err = jsonparser.Get(value, "[0]")
		if err != nil {
			return 0, fmt.Errorf("empty list")
		}
	}
	return parseNumber(value, vt)
}

// parseNumber accepts JSON numbers and the quoted NaN/Infinity tokens produced
// by sanitizeJSON. Non-finite values are returned as-is for the caller to drop.
func parseNumber(value []byte, vt jsonparser.ValueType) (float64, error) {
	switch vt {
	case jsonparser.Number:
		return jsonparser.ParseFloat(value)
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return 0, err
		}
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("not a number: %q", s)
	default:
		return 0, fmt.Errorf("unexpected %s value", vt)
	}
}
