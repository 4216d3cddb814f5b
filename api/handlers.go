/*
handlers.go - HTTP API handlers for inconvenience allowance claims

PURPOSE:
  Exposes RequestService and CalendarService via REST API. Handles HTTP
  request/response, JSON serialization, and delegates every rule to the
  allowance package.

ENDPOINTS:
  Claims:
    GET    /api/requests                   List visible claims
    POST   /api/requests                   Create a draft claim
    GET    /api/requests/{id}              Claim details
    PATCH  /api/requests/{id}              Update title/description
    DELETE /api/requests/{id}              Delete claim and its lines
    POST   /api/requests/{id}/transition   Change status {"status": "..."}

  Lines:
    GET    /api/requests/{id}/lines        Lines of one claim
    POST   /api/requests/{id}/lines        One line (object) or a batch (array)
    GET    /api/lines                      Every visible line
    GET    /api/lines/{id}                 Line details
    PATCH  /api/lines/{id}                 Change employee or dates
    DELETE /api/lines/{id}                 Delete line
    POST   /api/lines/{id}/response        Employee accepts or rejects
    POST   /api/lines/{id}/attendance      Representative certifies attendance

REQUEST FLOW:
  1. Principal from the auth middleware
  2. Decode and tag-validate the body
  3. Call the service
  4. Serialize response, or the error envelope (errors.go)

SEE ALSO:
  - dto.go:       Request/response data structures
  - days.go:      Calendar and directory endpoints
  - scenarios.go: Demo scenario loaders
  - server.go:    Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/factory"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     allowance.Store
	Requests  *allowance.RequestService
	Calendar  *allowance.CalendarService
	Auth      *Authenticator
	Calendars *factory.CalendarFactory
	Log       logrus.FieldLogger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

func NewHandler(store allowance.Store, requests *allowance.RequestService, calendar *allowance.CalendarService, auth *Authenticator, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:     store,
		Requests:  requests,
		Calendar:  calendar,
		Auth:      auth,
		Calendars: factory.NewCalendarFactory(),
		Log:       log,
		validate:  newValidator(),
	}
}

// principal returns the caller or writes 401.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (allowance.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeMessages(w, http.StatusUnauthorized, errMissingToken.Error())
	}
	return p, ok
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, generic.NotFoundError("%q is not a valid id", raw)
	}
	return id, nil
}

func (h *Handler) requestDTO(p allowance.Principal, req allowance.Request) RequestDTO {
	return toRequestDTO(req, h.Requests.Lifecycle.Targets(p.Role, req.Status))
}

// =============================================================================
// CLAIM ENDPOINTS
// =============================================================================

// ListRequests returns the claims visible to the caller.
// GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	reqs, err := h.Requests.ListRequests(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dtos := make([]RequestDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = h.requestDTO(p, req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRequest opens a draft claim.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := allowance.CanCreateRequest(p); err != nil {
		h.writeError(w, r, err)
		return
	}
	var body CreateRequestBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req, err := h.Requests.CreateRequest(r.Context(), p, allowance.RequestInput{
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.requestDTO(p, *req))
}

// GetRequest returns one claim.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.Requests.GetRequest(r.Context(), p, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.requestDTO(p, *req))
}

// UpdateRequest changes title and/or description.
// PATCH /api/requests/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body UpdateRequestBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req, err := h.Requests.UpdateRequest(r.Context(), p, id, allowance.RequestPatch{
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.requestDTO(p, *req))
}

// DeleteRequest removes a claim and its lines.
// DELETE /api/requests/{id}
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Requests.DeleteRequest(r.Context(), p, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionRequest moves a claim along the approval pipeline.
// POST /api/requests/{id}/transition
func (h *Handler) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body TransitionBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req, err := h.Requests.TransitionStatus(r.Context(), p, id, body.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.requestDTO(p, *req))
}

// =============================================================================
// LINE ENDPOINTS
// =============================================================================

// ListRequestLines returns the lines of one claim.
// GET /api/requests/{id}/lines
func (h *Handler) ListRequestLines(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lines, err := h.Requests.ListLines(r.Context(), p, &id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTOs(lines))
}

// CreateLines adds one line (JSON object) or a batch (JSON array). A batch
// is stored whole or not at all and reports every problem at once.
// POST /api/requests/{id}/lines
func (h *Handler) CreateLines(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	batch := bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
	inputs, err := h.lineInputs(data, batch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	lines, err := h.Requests.CreateLines(r.Context(), p, id, inputs, batch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if batch {
		writeJSON(w, http.StatusCreated, toLineDTOs(lines))
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTO(lines[0]))
}

// lineInputs decodes the body of CreateLines. Batch field errors are
// prefixed with the 1-based line number.
func (h *Handler) lineInputs(data []byte, batch bool) ([]allowance.LineInput, error) {
	if !batch {
		var body LineBody
		if err := h.decodeJSON(data, &body, ""); err != nil {
			return nil, err
		}
		dates, err := parseDates(body.Dates, "")
		if err != nil {
			return nil, err
		}
		return []allowance.LineInput{{EmployeeID: body.EmployeeID, Dates: dates}}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, generic.ValidationError("invalid request body")
	}
	if len(raw) == 0 {
		return nil, generic.ValidationError("at least one line is required")
	}

	var errs generic.Errors
	inputs := make([]allowance.LineInput, 0, len(raw))
	for i, item := range raw {
		prefix := "line " + strconv.Itoa(i+1) + ": "
		var body LineBody
		err := h.decodeJSON(item, &body, prefix)
		if err == nil {
			var dates []generic.Date
			if dates, err = parseDates(body.Dates, prefix); err == nil {
				inputs = append(inputs, allowance.LineInput{EmployeeID: body.EmployeeID, Dates: dates})
				continue
			}
		}
		collect(&errs, err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// collect appends the structured errors inside err to errs.
func collect(errs *generic.Errors, err error) {
	for _, msg := range generic.Messages(err) {
		errs.Add(generic.ValidationError("%s", msg))
	}
}

// ListLines returns every line the caller may see.
// GET /api/lines
func (h *Handler) ListLines(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	lines, err := h.Requests.ListLines(r.Context(), p, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTOs(lines))
}

// GetLine returns one line.
// GET /api/lines/{id}
func (h *Handler) GetLine(w http.ResponseWriter, r *http.Request) {
	h.withLine(w, r, func(ctx context.Context, p allowance.Principal, id int64) (*allowance.Line, error) {
		return h.Requests.GetLine(ctx, p, id)
	})
}

// UpdateLine changes a line's employee and/or dates.
// PATCH /api/lines/{id}
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var body UpdateLineBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	dates, err := parseDates(body.Dates, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withLine(w, r, func(ctx context.Context, p allowance.Principal, id int64) (*allowance.Line, error) {
		return h.Requests.UpdateLine(ctx, p, id, allowance.LinePatch{EmployeeID: body.EmployeeID, Dates: dates})
	})
}

// DeleteLine removes a line.
// DELETE /api/lines/{id}
func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Requests.DeleteLine(r.Context(), p, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RespondToLine records the employee's answer.
// POST /api/lines/{id}/response
func (h *Handler) RespondToLine(w http.ResponseWriter, r *http.Request) {
	var body LineResponseBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withLine(w, r, func(ctx context.Context, p allowance.Principal, id int64) (*allowance.Line, error) {
		return h.Requests.RespondToLine(ctx, p, id, body.Response)
	})
}

// CertifyAttendance records whether the employee worked the days.
// POST /api/lines/{id}/attendance
func (h *Handler) CertifyAttendance(w http.ResponseWriter, r *http.Request) {
	var body AttendanceBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.withLine(w, r, func(ctx context.Context, p allowance.Principal, id int64) (*allowance.Line, error) {
		return h.Requests.CertifyAttendance(ctx, p, id, body.AttendanceStatus)
	})
}

// withLine runs fn for the {id} line and writes the line or the error.
func (h *Handler) withLine(w http.ResponseWriter, r *http.Request, fn func(context.Context, allowance.Principal, int64) (*allowance.Line, error)) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	line, err := fn(r.Context(), p, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(*line))
}
