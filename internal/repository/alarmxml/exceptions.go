package alarmxml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// xmlExceptionAlarm is an <alarm> element of the exception document.
type xmlExceptionAlarm struct {
	// Name is the alarm (plot) name.
	Name string `xml:"name,attr"`
	// Algorithm is the algorithm name.
	Algorithm string `xml:"algorithm,attr"`
	// Exceptions are the exempted identifiers.
	Exceptions []xmlException `xml:"exception"`
}

// xmlException is an <exception> element.
type xmlException struct {
	// Identifier is the exempted identifier, "status" when empty.
	Identifier string `xml:"identifier,attr"`
	// StatusOnViolation is the status contributed to rollups, ERROR when empty.
	StatusOnViolation string `xml:"status_on_violation,attr"`
}

// LoadExceptions reads an exception document from path.
func LoadExceptions(path string) (*alarm.ExceptionList, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read exceptions: %w", err)
	}

	list, err := DecodeExceptions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return list, nil
}

// DecodeExceptions reads every <alarm name algorithm> element and its
// <exception identifier status_on_violation> children. Unknown statuses
// fall back to ERROR.
func DecodeExceptions(r io.Reader) (*alarm.ExceptionList, error) {
	elements, err := decodeAll[xmlExceptionAlarm](r, elementAlarm)
	if err != nil {
		return nil, err
	}

	list := alarm.NewExceptionList()

	for _, e := range elements {
		name, algorithm := strings.TrimSpace(e.Name), strings.TrimSpace(e.Algorithm)
		if name == "" || algorithm == "" {
			return nil, fmt.Errorf("%w: exception needs name and algorithm, got %q/%q",
				ErrInvalidDocument, e.Name, e.Algorithm)
		}

		identifiers := make(map[string]alarm.Status, len(e.Exceptions))

		for _, x := range e.Exceptions {
			id := strings.TrimSpace(x.Identifier)
			if id == "" {
				id = alarm.IdentifierStatus
			}

			status, err := alarm.ParseStatus(x.StatusOnViolation)
			if err != nil || !status.IsClassified() {
				status = alarm.StatusError
			}

			identifiers[id] = status
		}

		list.Add(alarm.Exception{
			Alarm:       name,
			Algorithm:   algorithm,
			Identifiers: identifiers,
		})
	}

	return list, nil
}
