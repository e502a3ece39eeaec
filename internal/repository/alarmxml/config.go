package alarmxml

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/evaluation"
)

// ErrInvalidDocument is returned for XML documents that cannot be decoded.
var ErrInvalidDocument = errors.New("invalid XML document")

// Element names of the alarm configuration.
const (
	elementAlarmList = "alarmList"
	elementAlarm     = "alarm"
)

// xmlList is an <alarmList> element.
type xmlList struct {
	// Name is the list name.
	Name string `xml:"name,attr"`
	// Group is the list group.
	Group string `xml:"group,attr"`
	// Enabled gates the whole list.
	Enabled string `xml:"enabled,attr"`
	// Sets are the nested alarm sets.
	Sets []xmlSet `xml:"alarmSet"`
}

// xmlSet is an <alarmSet> element.
type xmlSet struct {
	// Name is the plot name pattern.
	Name string `xml:"name,attr"`
	// Enabled gates the set.
	Enabled string `xml:"enabled,attr"`
	// Alarms are the nested alarm definitions.
	Alarms []xmlAlarm `xml:"alarm"`
}

// xmlAlarm is an <alarm> element.
type xmlAlarm struct {
	// Function is the algorithm name.
	Function string `xml:"function,attr"`
	// Enabled gates the alarm.
	Enabled string `xml:"enabled,attr"`
	// Parameters are the algorithm parameters.
	Parameters []xmlParameter `xml:"parameter"`
	// WarningLimits are the warning thresholds.
	WarningLimits *xmlLimits `xml:"warning_limits"`
	// ErrorLimits are the error thresholds.
	ErrorLimits *xmlLimits `xml:"error_limits"`
}

// xmlParameter is a <parameter> element.
type xmlParameter struct {
	// Name is the parameter key.
	Name string `xml:"name,attr"`
	// Value is the literal value.
	Value string `xml:"value,attr"`
}

// xmlLimits is a <warning_limits> or <error_limits> element.
type xmlLimits struct {
	// Min is the lower threshold expression.
	Min string `xml:"min,attr"`
	// Max is the upper threshold expression.
	Max string `xml:"max,attr"`
}

// LoadConfig reads the alarm configuration from path.
func LoadConfig(path string) ([]*evaluation.AlarmSet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read alarm configuration: %w", err)
	}

	sets, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sets, nil
}

// DecodeConfig reads the enabled alarm sets, in document order, from every
// <alarmList> element at any depth. Disabled lists, sets and alarms are
// skipped. Definitions with missing or malformed attributes, or inside a
// list or set whose enabled attribute is malformed, are returned with Err
// set so they can be reported.
func DecodeConfig(r io.Reader) ([]*evaluation.AlarmSet, error) {
	lists, err := decodeAll[xmlList](r, elementAlarmList)
	if err != nil {
		return nil, err
	}

	var sets []*evaluation.AlarmSet

	for _, list := range lists {
		enabled, listErr := parseEnabled(list.Enabled)
		if listErr != nil {
			listErr = fmt.Errorf("%w: alarm list %q: %w", alarm.ErrConfiguration, list.Name, listErr)
		} else if !enabled {
			continue
		}

		for _, xs := range list.Sets {
			enabled, setErr := parseEnabled(xs.Enabled)
			if setErr != nil {
				setErr = fmt.Errorf("%w: alarm set %q: %w", alarm.ErrConfiguration, xs.Name, setErr)
			} else if !enabled {
				continue
			}

			set := buildSet(list, xs)

			if cause := cmp.Or(listErr, setErr); cause != nil {
				for _, def := range set.Definitions {
					def.Err = cause
				}
			}

			sets = append(sets, set)
		}
	}

	return sets, nil
}

// buildSet converts an enabled <alarmSet>.
func buildSet(list xmlList, xs xmlSet) *evaluation.AlarmSet {
	set := &evaluation.AlarmSet{
		List: list.Name,
		Name: strings.TrimSpace(xs.Name),
	}

	for _, xa := range xs.Alarms {
		def := buildDefinition(xa)
		if def == nil {
			continue
		}

		def.List = list.Name
		def.Group = list.Group
		def.Set = set.Name
		def.Index = len(set.Definitions)

		if set.Name == "" && def.Err == nil {
			def.Err = fmt.Errorf("%w: alarm set without a name", alarm.ErrConfiguration)
		}

		set.Definitions = append(set.Definitions, def)
	}

	return set
}

// buildDefinition converts an <alarm>, or returns nil when it is disabled.
func buildDefinition(xa xmlAlarm) *evaluation.Definition {
	def := &evaluation.Definition{
		Algorithm: strings.TrimSpace(xa.Function),
	}

	enabled, err := parseEnabled(xa.Enabled)
	if err != nil {
		def.Err = fmt.Errorf("%w: alarm %q: %w", alarm.ErrConfiguration, def.Algorithm, err)

		return def
	}

	if !enabled {
		return nil
	}

	for _, p := range xa.Parameters {
		def.Parameters = append(def.Parameters, alarm.Parameter{
			Name:  strings.TrimSpace(p.Name),
			Value: p.Value,
		})
	}

	switch {
	case def.Algorithm == "":
		def.Err = fmt.Errorf("%w: alarm without a function", alarm.ErrConfiguration)
	case xa.WarningLimits == nil || xa.ErrorLimits == nil:
		def.Err = fmt.Errorf("%w: alarm %q needs warning_limits and error_limits", alarm.ErrConfiguration, def.Algorithm)
	default:
		def.Limits = evaluation.LimitExpressions{
			ErrorMin:   xa.ErrorLimits.Min,
			WarningMin: xa.WarningLimits.Min,
			WarningMax: xa.WarningLimits.Max,
			ErrorMax:   xa.ErrorLimits.Max,
		}
	}

	for _, p := range def.Parameters {
		if p.Name == "" && def.Err == nil {
			def.Err = fmt.Errorf("%w: alarm %q has a parameter without a name", alarm.ErrConfiguration, def.Algorithm)
		}
	}

	return def
}

// parseEnabled reads an enabled attribute; empty means enabled.
func parseEnabled(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return true, nil
	}

	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("enabled must be a boolean, got %q", value)
	}

	return enabled, nil
}

// decodeAll decodes every element named local, at any depth, into T.
func decodeAll[T any](r io.Reader, local string) ([]T, error) {
	decoder := xml.NewDecoder(r)

	var (
		out  []T
		seen bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		seen = true

		if start.Name.Local != local {
			continue
		}

		var item T
		if err = decoder.DecodeElement(&item, &start); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		out = append(out, item)
	}

	if !seen {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidDocument)
	}

	return out, nil
}
