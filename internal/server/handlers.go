package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/ginjaninja78/changesheet-preview/internal/changesheet"
	"github.com/ginjaninja78/changesheet-preview/internal/preview"
)

// XLSXContentType selects spreadsheet parsing for a request body.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// KindBadRequest is reported when the request itself cannot be read.
const KindBadRequest = "bad_request"

// ActionInfo describes one declared action.
type ActionInfo struct {
	Action       changesheet.Action `json:"action"`
	Family       string             `json:"family"`
	Translatable bool               `json:"translatable"`
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}

func (s *Server) actionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actions := lo.Map(changesheet.Actions(), func(a changesheet.Action, _ int) ActionInfo {
			return ActionInfo{
				Action:       a,
				Family:       a.Family().String(),
				Translatable: a.Family() != changesheet.FamilyNone,
			}
		})
		writeJSON(w, http.StatusOK, actions)
	}
}

func (s *Server) previewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet, err := s.readChangesheet(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, &preview.StageError{Kind: KindBadRequest, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, preview.Build(sheet, s.translator))
	}
}

func (s *Server) payloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet, err := s.readChangesheet(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, &preview.StageError{Kind: KindBadRequest, Message: err.Error()})
			return
		}

		view := preview.Build(sheet, s.translator)
		if err := view.Err(); err != nil {
			s.logger.Debug("payload not available", map[string]any{"stage": view.Stage(), "error": err.Error()})
			writeJSON(w, http.StatusUnprocessableEntity, preview.DescribeError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(view.Payload))
	}
}

// readChangesheet parses the request body. Query parameters override the
// configured parser settings:
//   - header=false   the first line is data
//   - delimiter=tab  any name accepted by config.ParseDelimiter
//   - sheet=Name     worksheet for spreadsheet uploads
func (s *Server) readChangesheet(w http.ResponseWriter, r *http.Request) (*changesheet.Changesheet, error) {
	settings := s.parser
	query := r.URL.Query()

	if v := query.Get("header"); v != "" {
		header, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid header parameter %q", v)
		}
		settings.Header = &header
	}
	if v := query.Get("delimiter"); v != "" {
		settings.Delimiter = v
	}
	if v := query.Get("sheet"); v != "" {
		settings.Sheet = v
	}

	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if isXLSX(r.Header.Get("Content-Type")) {
		return changesheet.ParseXLSX(body, settings.Sheet)
	}

	opts, err := settings.Options()
	if err != nil {
		return nil, err
	}
	return changesheet.ParseReader(body, opts)
}

func isXLSX(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == XLSXContentType
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
