package results

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// ErrInvalidSnapshot is returned when a snapshot does not hold a summary.
var ErrInvalidSnapshot = errors.New("invalid results snapshot")

// Field names of the snapshot layout.
const (
	FieldRunID      = "run_id"
	FieldTimestamp  = "timestamp"
	FieldStatus     = "status"
	FieldCounts     = "counts"
	FieldResults    = "results"
	FieldSet        = "set"
	FieldAlarm      = "alarm"
	FieldAlgorithm  = "algorithm"
	FieldParameters = "parameters"
	FieldLimits     = "limits"
	FieldValue      = "value"
	FieldError      = "error"
	FieldRollup     = "rollup"
	FieldDetails    = "details"
	FieldDiagnostic = "diagnostic"
	FieldWarnings   = "warnings"
	FieldName       = "name"
)

// Limit field names.
const (
	fieldErrorMin   = "error_min"
	fieldWarningMin = "warning_min"
	fieldWarningMax = "warning_max"
	fieldErrorMax   = "error_max"
)

// ToStruct converts a summary into its snapshot form.
func ToStruct(s *alarm.Summary) *structpb.Struct {
	perStatus := s.Counts()

	counts := make(map[string]*structpb.Value, len(perStatus))
	for status, n := range perStatus {
		counts[status.String()] = structpb.NewNumberValue(float64(n))
	}

	results := make([]*structpb.Value, 0, len(s.Results))
	for i := range s.Results {
		results = append(results, structpb.NewStructValue(ResultToStruct(&s.Results[i])))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldRunID:     structpb.NewStringValue(s.RunID),
		FieldTimestamp: structpb.NewStringValue(s.Timestamp.UTC().Format(time.RFC3339Nano)),
		FieldStatus:    structpb.NewStringValue(s.Status().String()),
		FieldCounts:    structpb.NewStructValue(&structpb.Struct{Fields: counts}),
		FieldResults:   structpb.NewListValue(&structpb.ListValue{Values: results}),
	}}
}

// ResultToStruct converts one result. Details are kept as numbers when
// they are scalars and rendered as text otherwise.
func ResultToStruct(r *alarm.Result) *structpb.Struct {
	params := make([]*structpb.Value, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		params = append(params, pair(p.Name, structpb.NewStringValue(p.Value)))
	}

	details := make([]*structpb.Value, 0)
	for _, d := range r.Output.Details() {
		var value *structpb.Value
		if f, ok := d.Value.(float64); ok {
			value = number(f)
		} else {
			value = structpb.NewStringValue(alarm.FormatDetail(d.Value))
		}

		details = append(details, pair(d.Name, value))
	}

	warnings := make([]*structpb.Value, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, structpb.NewStringValue(w))
	}

	fields := map[string]*structpb.Value{
		FieldSet:        structpb.NewStringValue(r.Set),
		FieldAlarm:      structpb.NewStringValue(r.Alarm),
		FieldAlgorithm:  structpb.NewStringValue(r.Algorithm),
		FieldParameters: structpb.NewListValue(&structpb.ListValue{Values: params}),
		FieldLimits: structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldErrorMin:   number(r.Limits.ErrorMin),
			fieldWarningMin: number(r.Limits.WarningMin),
			fieldWarningMax: number(r.Limits.WarningMax),
			fieldErrorMax:   number(r.Limits.ErrorMax),
		}}),
		FieldValue:      number(r.Output.Value()),
		FieldStatus:     structpb.NewStringValue(r.Status().String()),
		FieldRollup:     structpb.NewStringValue(r.Rollup.String()),
		FieldDetails:    structpb.NewListValue(&structpb.ListValue{Values: details}),
		FieldDiagnostic: structpb.NewStringValue(r.Diagnostic),
		FieldWarnings:   structpb.NewListValue(&structpb.ListValue{Values: warnings}),
	}

	if bar, ok := r.Output.Error(); ok {
		fields[FieldError] = number(bar)
	}

	return &structpb.Struct{Fields: fields}
}

// FromStruct converts a snapshot back into a summary.
func FromStruct(st *structpb.Struct) (*alarm.Summary, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSnapshot)
	}

	fields := st.GetFields()

	summary := &alarm.Summary{
		RunID: fields[FieldRunID].GetStringValue(),
	}

	if text := fields[FieldTimestamp].GetStringValue(); text != "" {
		ts, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %w", ErrInvalidSnapshot, err)
		}

		summary.Timestamp = ts
	}

	for i, v := range fields[FieldResults].GetListValue().GetValues() {
		r, err := ResultFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}

		summary.Results = append(summary.Results, r)
	}

	return summary, nil
}

// ResultFromStruct converts one snapshot result back.
func ResultFromStruct(st *structpb.Struct) (alarm.Result, error) {
	if st == nil {
		return alarm.Result{}, fmt.Errorf("%w: result is not an object", ErrInvalidSnapshot)
	}

	fields := st.GetFields()

	status, err := alarm.ParseStatus(fields[FieldStatus].GetStringValue())
	if err != nil {
		return alarm.Result{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	rollup, err := alarm.ParseStatus(fields[FieldRollup].GetStringValue())
	if err != nil {
		return alarm.Result{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	value, err := numberOf(fields[FieldValue])
	if err != nil {
		return alarm.Result{}, err
	}

	output := alarm.NewOutput(value)

	if v, ok := fields[FieldError]; ok {
		bar, err := numberOf(v)
		if err != nil {
			return alarm.Result{}, err
		}

		output = output.WithError(bar)
	}

	for _, d := range fields[FieldDetails].GetListValue().GetValues() {
		name, detail := unpair(d)

		switch kind := detail.GetKind().(type) {
		case *structpb.Value_NumberValue:
			output = output.WithDetail(name, kind.NumberValue)
		default:
			output = output.WithDetail(name, detail.GetStringValue())
		}
	}

	limits := fields[FieldLimits].GetStructValue().GetFields()

	r := alarm.Result{
		Set:        fields[FieldSet].GetStringValue(),
		Alarm:      fields[FieldAlarm].GetStringValue(),
		Algorithm:  fields[FieldAlgorithm].GetStringValue(),
		Output:     output.WithStatus(status),
		Diagnostic: fields[FieldDiagnostic].GetStringValue(),
		Rollup:     rollup,
	}

	for _, target := range []struct {
		dst *float64
		key string
	}{
		{&r.Limits.ErrorMin, fieldErrorMin},
		{&r.Limits.WarningMin, fieldWarningMin},
		{&r.Limits.WarningMax, fieldWarningMax},
		{&r.Limits.ErrorMax, fieldErrorMax},
	} {
		if *target.dst, err = numberOf(limits[target.key]); err != nil {
			return alarm.Result{}, err
		}
	}

	for _, p := range fields[FieldParameters].GetListValue().GetValues() {
		name, value := unpair(p)
		r.Parameters = append(r.Parameters, alarm.Parameter{Name: name, Value: value.GetStringValue()})
	}

	for _, w := range fields[FieldWarnings].GetListValue().GetValues() {
		r.Warnings = append(r.Warnings, w.GetStringValue())
	}

	return r, nil
}

// pair builds a {name, value} object.
func pair(name string, value *structpb.Value) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldName:  structpb.NewStringValue(name),
		FieldValue: value,
	}})
}

// unpair reads a {name, value} object.
func unpair(v *structpb.Value) (string, *structpb.Value) {
	fields := v.GetStructValue().GetFields()

	return fields[FieldName].GetStringValue(), fields[FieldValue]
}

// number encodes a float; JSON has no NaN or infinities, so those are text.
func number(f float64) *structpb.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return structpb.NewStringValue(strconv.FormatFloat(f, 'g', -1, 64))
	}

	return structpb.NewNumberValue(f)
}

// numberOf decodes a value written by number. A missing value is zero.
func numberOf(v *structpb.Value) (float64, error) {
	switch kind := v.GetKind().(type) {
	case nil:
		return 0, nil
	case *structpb.Value_NumberValue:
		return kind.NumberValue, nil
	case *structpb.Value_StringValue:
		f, err := strconv.ParseFloat(kind.StringValue, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("%w: expected a number", ErrInvalidSnapshot)
	}
}
