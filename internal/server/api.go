package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/codegen"
	"github.com/livetemplate/blockdraft/internal/editor"
	"github.com/livetemplate/blockdraft/internal/export"
	"github.com/livetemplate/blockdraft/internal/store"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

// APIHandler serves the JSON API under /api/.
type APIHandler struct {
	server   *Server
	validate *validator.Validate
}

// NewAPIHandler creates the API handler for a server.
func NewAPIHandler(srv *Server) *APIHandler {
	return &APIHandler{
		server:   srv,
		validate: validator.New(),
	}
}

// createTemplateRequest is the body of POST /api/templates.
type createTemplateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// actionRequest is the wire form of an editor action. Type selects the
// variant; the remaining fields are read per variant.
type actionRequest struct {
	Type      string            `json:"type" validate:"required,oneof=add_block update_block update_style delete_block duplicate_block reorder"`
	BlockType string            `json:"blockType,omitempty" validate:"omitempty,oneof=header text image button divider spacer"`
	At        *int              `json:"at,omitempty"`
	ID        string            `json:"id,omitempty"`
	Content   *string           `json:"content,omitempty"`
	AltText   *string           `json:"altText,omitempty"`
	LinkURL   *string           `json:"linkUrl,omitempty"`
	Style     map[string]string `json:"style,omitempty"`
	IDs       []string          `json:"ids,omitempty"`
}

// sendRequest is the body of POST /api/templates/{id}/send. An empty
// body delivers to every configured sink.
type sendRequest struct {
	Sink string `json:"sink,omitempty"`
}

// sampleUpdateRequest is the body of PUT /api/variables/sample.
type sampleUpdateRequest struct {
	Sample map[string]string `json:"sample" validate:"required"`
}

// decodeAction converts the wire form into a typed editor action.
func decodeAction(req actionRequest) (editor.Action, error) {
	switch req.Type {
	case "add_block":
		if req.BlockType == "" {
			return nil, errors.New("blockType required for add_block")
		}
		return editor.AddBlock{Type: blockdraft.BlockType(req.BlockType), At: req.At}, nil
	case "update_block":
		if req.ID == "" {
			return nil, errors.New("id required for update_block")
		}
		return editor.UpdateBlock{ID: req.ID, Content: req.Content, AltText: req.AltText, LinkURL: req.LinkURL}, nil
	case "update_style":
		if req.ID == "" {
			return nil, errors.New("id required for update_style")
		}
		return editor.UpdateStyle{ID: req.ID, Patch: blockdraft.Style(req.Style)}, nil
	case "delete_block":
		if req.ID == "" {
			return nil, errors.New("id required for delete_block")
		}
		return editor.DeleteBlock{ID: req.ID}, nil
	case "duplicate_block":
		if req.ID == "" {
			return nil, errors.New("id required for duplicate_block")
		}
		return editor.DuplicateBlock{ID: req.ID}, nil
	case "reorder":
		if len(req.IDs) == 0 {
			return nil, errors.New("ids required for reorder")
		}
		return editor.Reorder{IDs: req.IDs}, nil
	}
	return nil, fmt.Errorf("unknown action type: %s", req.Type)
}

// ServeHTTP routes API requests.
func (api *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/api")
	p = strings.TrimPrefix(p, "/")

	switch {
	case p == "templates":
		switch r.Method {
		case http.MethodGet:
			api.handleList(w, r)
		case http.MethodPost:
			api.handleCreate(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case strings.HasPrefix(p, "templates/"):
		api.handleTemplate(w, r, strings.TrimPrefix(p, "templates/"))
	case p == "import":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleImport(w, r)
	case p == "variables":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleVariables(w, r)
	case p == "variables/sample":
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleSampleUpdate(w, r)
	case p == "blocks":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleBlocks(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleTemplate routes /api/templates/{id} and its sub-operations.
func (api *APIHandler) handleTemplate(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "template ID required")
		return
	}
	op := ""
	if len(parts) == 2 {
		op = parts[1]
	}

	switch op {
	case "":
		switch r.Method {
		case http.MethodGet:
			api.handleGet(w, r, id)
		case http.MethodDelete:
			api.handleDelete(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "actions":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleActions(w, r, id)
	case "undo":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleUndo(w, r, id)
	case "redo":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleRedo(w, r, id)
	case "preview":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handlePreview(w, r, id)
	case "export":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleExport(w, r, id)
	case "send":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleSend(w, r, id)
	case "variables":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleTemplateVariables(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown operation: "+op)
	}
}

func (api *APIHandler) handleList(w http.ResponseWriter, r *http.Request) {
	templates, err := api.server.Templates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

func (api *APIHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !api.decodeBody(w, r, &req) {
		return
	}

	tpl, err := api.server.CreateTemplate(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"template": tpl,
	})
}

func (api *APIHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	tpl, err := api.server.currentTemplate(r.Context(), id)
	if err != nil {
		writeTemplateError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"template": tpl,
	})
}

func (api *APIHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := api.server.DeleteTemplate(r.Context(), id); err != nil {
		writeTemplateError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": id,
	})
}

func (api *APIHandler) handleActions(w http.ResponseWriter, r *http.Request, id string) {
	var req actionRequest
	if !api.decodeBody(w, r, &req) {
		return
	}

	act, err := decodeAction(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := api.server.Dispatch(r.Context(), id, act)
	if err != nil {
		writeStateError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// undoResponse reports the state after an undo or redo, and whether the
// step actually applied. Past either end of the history the step is a
// no-op and applied is false.
type undoResponse struct {
	State
	Applied bool `json:"applied"`
}

func (api *APIHandler) handleUndo(w http.ResponseWriter, r *http.Request, id string) {
	st, applied, err := api.server.Undo(r.Context(), id)
	if err != nil {
		writeStateError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{State: st, Applied: applied})
}

func (api *APIHandler) handleRedo(w http.ResponseWriter, r *http.Request, id string) {
	st, applied, err := api.server.Redo(r.Context(), id)
	if err != nil {
		writeStateError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{State: st, Applied: applied})
}

func (api *APIHandler) handlePreview(w http.ResponseWriter, r *http.Request, id string) {
	theme := r.URL.Query().Get("theme")
	if theme != "" && theme != "light" && theme != "dark" && theme != "auto" {
		writeError(w, http.StatusBadRequest, "invalid theme: "+theme)
		return
	}

	html, err := api.server.Preview(r.Context(), id, codegen.Theme(theme))
	if err != nil {
		writeTemplateError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(html); err != nil {
		log.Printf("[API] Error writing preview response: %v", err)
	}
}

func (api *APIHandler) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := api.server.currentTemplate(r.Context(), id)
	if err != nil {
		writeTemplateError(w, id, err)
		return
	}

	data, err := export.Bytes(tpl, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tpl.ID+"."+f.Ext()))
	if _, err := w.Write(data); err != nil {
		log.Printf("[API] Error writing export response: %v", err)
	}
}

func (api *APIHandler) handleSend(w http.ResponseWriter, r *http.Request, id string) {
	// The body is optional: without it, deliver to every sink.
	var req sendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tpl, err := api.server.currentTemplate(r.Context(), id)
	if err != nil {
		writeTemplateError(w, id, err)
		return
	}

	sinks := api.server.sinks
	delivered := sinks.Names()
	if req.Sink != "" {
		sink, ok := sinks.Get(req.Sink)
		if !ok {
			writeError(w, http.StatusNotFound, "sink not found: "+req.Sink)
			return
		}
		delivered = []string{req.Sink}
		err = sink.Send(r.Context(), tpl)
	} else {
		if len(delivered) == 0 {
			writeError(w, http.StatusBadRequest, "no sinks configured")
			return
		}
		err = sinks.SendAll(r.Context(), tpl)
	}
	if err != nil {
		// Delivery failures are transient: the document is intact and
		// the send can simply be retried.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"delivered": delivered,
	})
}

func (api *APIHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	tpl, err := api.server.Import(r.Context(), raw, "import")
	if err != nil {
		if errors.Is(err, errSaveFailed) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"template": tpl,
	})
}

func (api *APIHandler) handleVariables(w http.ResponseWriter, r *http.Request) {
	catalog := api.server.config.Variables.Catalog
	if catalog == nil {
		catalog = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"catalog": catalog,
		"sample":  api.server.sampleData(),
	})
}

func (api *APIHandler) handleSampleUpdate(w http.ResponseWriter, r *http.Request) {
	var req sampleUpdateRequest
	if !api.decodeBody(w, r, &req) {
		return
	}

	api.server.setSampleData(req.Sample)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sample": req.Sample,
	})
}

func (api *APIHandler) handleTemplateVariables(w http.ResponseWriter, r *http.Request, id string) {
	tpl, err := api.server.currentTemplate(r.Context(), id)
	if err != nil {
		writeTemplateError(w, id, err)
		return
	}

	vars := blockdraft.TemplateVariables(tpl)
	if vars == nil {
		vars = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"variables": vars,
		"count":     len(vars),
	})
}

// blockInfo describes one palette entry: a block type with the content
// and style a fresh block of that type starts with.
type blockInfo struct {
	Type           blockdraft.BlockType `json:"type"`
	DefaultContent string               `json:"defaultContent"`
	DefaultStyle   blockdraft.Style     `json:"defaultStyle"`
}

func (api *APIHandler) handleBlocks(w http.ResponseWriter, r *http.Request) {
	types := blockdraft.BlockTypes()
	blocks := make([]blockInfo, 0, len(types))
	for _, t := range types {
		blocks = append(blocks, blockInfo{
			Type:           t,
			DefaultContent: blockdraft.DefaultContent(t),
			DefaultStyle:   blockdraft.DefaultStyle(t),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": blocks,
	})
}

// decodeBody decodes a JSON request body into v, enforcing the body
// size cap and the struct's validation tags.
func (api *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := api.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, formatValidationError(err))
		return false
	}
	return true
}

// formatValidationError renders validator errors as a single message.
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("field '%s' failed on the '%s' rule", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// writeTemplateError maps document lookup failures onto status codes.
func writeTemplateError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "template not found: "+id)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeStateError maps editing failures onto status codes: missing
// documents are 404, store write failures are 500, and everything else
// is a rejected action.
func writeStateError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "template not found: "+id)
	case errors.Is(err, errSaveFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Printf("[API] Error encoding error response: %v", err)
	}
}
