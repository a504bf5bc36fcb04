// =============================================================================
// Changesheet Preview - Staged View
// =============================================================================
//
// A View holds everything shown for one changesheet:
//   1. The raw table as parsed
//   2. The normalized table (blank ids and actions filled in)
//   3. The draft payload text
//
// STAGE FAILURES:
//   Each stage runs only if the previous one succeeded. A failed stage keeps
//   its error and leaves its output empty; the output of earlier stages is
//   always kept. A partial table or partial payload batch is never shown.
//
//   | Raw | Normalize fails      | -> raw table + normalize error     |
//   | Raw | Normalized | Payload fails -> both tables + payload error |
//
// =============================================================================

package preview

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/samber/lo"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/payload"
)

// Stage names the furthest stage a View reached.
type Stage string

const (
	StageParsed     Stage = "parsed"
	StageNormalized Stage = "normalized"
	StagePayload    Stage = "payload"
)

// View is the staged result for one changesheet.
type View struct {
	// Fields and Records are the raw table, including any extra columns.
	Fields  []string
	Records []map[string]string

	// Delimiter is the detected or configured separator; zero for spreadsheets.
	Delimiter rune

	// Raw contains the typed rows before normalization.
	Raw []changesheet.Row

	// ParseErrors are structural problems reported by the parser.
	ParseErrors []changesheet.ParseError

	// MissingColumns lists required columns absent from the header.
	MissingColumns []string

	// Normalized is nil when NormalizeError is set.
	Normalized     []changesheet.Row
	NormalizeError error

	// Payload is empty when PayloadError is set or normalization failed.
	Payload      string
	PayloadError error

	// Caveats are standing limitations that apply to the payload.
	Caveats []string
}

// Build runs the normalize and translate stages over a parsed changesheet.
// Structural parse errors are carried along; they do not stop later stages.
func Build(sheet *changesheet.Changesheet, tr *payload.Translator) *View {
	v := &View{
		Fields:         sheet.Fields,
		Records:        sheet.Records,
		Delimiter:      sheet.Delimiter,
		Raw:            sheet.Rows,
		ParseErrors:    sheet.Errors,
		MissingColumns: sheet.MissingColumns(),
		Caveats:        []string{payload.UnresolvedCollectionCaveat},
	}

	normalized, err := changesheet.Normalize(sheet.Rows)
	if err != nil {
		v.NormalizeError = err
		return v
	}
	v.Normalized = normalized

	if lo.ContainsBy(normalized, func(r changesheet.Row) bool { return r.Action.Family() == changesheet.FamilyInsert }) {
		v.Caveats = append(v.Caveats, payload.AppendOnlyInsertCaveat)
	}

	text, err := tr.TranslateRows(normalized)
	if err != nil {
		v.PayloadError = err
		return v
	}
	v.Payload = text

	return v
}

// Stage returns the furthest stage that succeeded.
func (v *View) Stage() Stage {
	switch {
	case v.NormalizeError != nil:
		return StageParsed
	case v.PayloadError != nil:
		return StageNormalized
	default:
		return StagePayload
	}
}

// Err returns the error of the first failed stage, or nil.
func (v *View) Err() error {
	if v.NormalizeError != nil {
		return v.NormalizeError
	}
	return v.PayloadError
}

// =============================================================================
// ERROR DESCRIPTIONS
// =============================================================================

// Error kinds reported in StageError.
const (
	KindParseStructure    = "parse_structure"
	KindMissingAntecedent = "missing_antecedent"
	KindUnsupportedAction = "unsupported_action"
	KindInternal          = "internal"
)

// StageError is the serializable description of a stage failure.
type StageError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Row     *int   `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
	Action  string `json:"action,omitempty"`
}

// DescribeError classifies err. It returns nil for a nil error.
func DescribeError(err error) *StageError {
	if err == nil {
		return nil
	}

	var (
		mae *changesheet.MissingAntecedentError
		uae *payload.UnsupportedActionError
		pse *changesheet.ParseStructureError
	)
	switch {
	case errors.As(err, &mae):
		return &StageError{Kind: KindMissingAntecedent, Message: err.Error(), Row: lo.ToPtr(mae.Row), Field: mae.Field}
	case errors.As(err, &uae):
		return &StageError{Kind: KindUnsupportedAction, Message: err.Error(), Row: lo.ToPtr(uae.Row), Action: string(uae.Action)}
	case errors.As(err, &pse):
		return &StageError{Kind: KindParseStructure, Message: err.Error()}
	default:
		return &StageError{Kind: KindInternal, Message: err.Error()}
	}
}

type viewJSON struct {
	Stage          Stage                    `json:"stage"`
	Fields         []string                 `json:"fields"`
	Delimiter      string                   `json:"delimiter,omitempty"`
	Raw            []changesheet.Row        `json:"raw"`
	Records        []map[string]string      `json:"records"`
	ParseErrors    []changesheet.ParseError `json:"parseErrors"`
	MissingColumns []string                 `json:"missingColumns"`
	Normalized     []changesheet.Row        `json:"normalized"`
	NormalizeError *StageError              `json:"normalizeError,omitempty"`
	Payload        json.RawMessage          `json:"payload,omitempty"`
	PayloadError   *StageError              `json:"payloadError,omitempty"`
	Caveats        []string                 `json:"caveats"`
}

// MarshalJSON renders the view for API clients. The payload is embedded as
// JSON rather than as a string.
func (v *View) MarshalJSON() ([]byte, error) {
	out := viewJSON{
		Stage:          v.Stage(),
		Fields:         nonNil(v.Fields),
		Raw:            nonNil(v.Raw),
		Records:        nonNil(v.Records),
		ParseErrors:    nonNil(v.ParseErrors),
		MissingColumns: nonNil(v.MissingColumns),
		Normalized:     v.Normalized,
		NormalizeError: DescribeError(v.NormalizeError),
		PayloadError:   DescribeError(v.PayloadError),
		Caveats:        nonNil(v.Caveats),
	}
	if v.Delimiter != 0 {
		out.Delimiter = string(v.Delimiter)
	}
	if v.Payload != "" {
		out.Payload = json.RawMessage(v.Payload)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
