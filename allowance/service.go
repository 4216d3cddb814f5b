/*
service.go - Claim operations

PURPOSE:
  RequestService exposes every claim and line operation. It owns no rules
  of its own: visibility and mutation rights come from access.go, status
  changes from the Lifecycle, line checks and amounts from the
  BulkLineValidator and Allocator.

TRANSACTIONS:
  Every write runs inside Store.WithTx:
  - CreateRequest: next per-year sequence + insert (claim numbers never repeat)
  - CreateLines:   validation (conflict reads) + inserts (no double-booking)
  - Transition:    status check + update; notifications fire after commit

NOTIFICATIONS:
  Fire-and-forget. A failing Notifier is logged and the committed status
  change stands.

SEE ALSO:
  - access.go:    Authorization matrix
  - lifecycle.go: Transition table
  - bulk.go:      Batch validation
*/
package allowance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

const maxTitleLength = 100

// RequestService implements the claim operations.
type RequestService struct {
	Store     Store
	Lifecycle *Lifecycle
	Validator *BulkValidator
	Notifier  Notifier
	Log       logrus.FieldLogger
	Now       func() time.Time
}

func NewRequestService(store Store, validator *BulkValidator, notifier Notifier, log logrus.FieldLogger) *RequestService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RequestService{
		Store:     store,
		Lifecycle: NewLifecycle(),
		Validator: validator,
		Notifier:  notifier,
		Log:       log,
		Now:       time.Now,
	}
}

// RequestInput holds the writable fields of a new claim.
type RequestInput struct {
	Title       string
	Description string
}

// RequestPatch holds a partial update; nil fields are left unchanged.
type RequestPatch struct {
	Title       *string
	Description *string
}

// LinePatch holds a partial line update; nil fields are left unchanged.
type LinePatch struct {
	EmployeeID *int64
	Dates      []generic.Date
}

// =============================================================================
// REQUESTS
// =============================================================================

// CreateRequest opens a draft claim in the representative's department and
// assigns its claim number.
func (s *RequestService) CreateRequest(ctx context.Context, p Principal, in RequestInput) (*Request, error) {
	if err := CanCreateRequest(p); err != nil {
		return nil, err
	}
	title, desc := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if err := validateRequestFields(&title, &desc); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	req := &Request{
		Title:           title,
		Description:     desc,
		DepartmentID:    p.DepartmentID,
		DepartmentRepID: p.UserID,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.Store.WithTx(ctx, func(repos Repos) error {
		seq, err := repos.Requests().NextSequence(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate request number: %w", err)
		}
		req.RequestID = FormatRequestID(now.Year(), seq)
		return repos.Requests().Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"request": req.RequestID,
		"actor":   p.UserID,
	}).Info("request created")
	return req, nil
}

func validateRequestFields(title, desc *string) error {
	var errs generic.Errors
	if title != nil {
		switch {
		case *title == "":
			errs.Add(generic.ValidationError("title: is required"))
		case len([]rune(*title)) > maxTitleLength:
			errs.Add(generic.ValidationError("title: must be at most %d characters", maxTitleLength))
		}
	}
	if desc != nil && *desc == "" {
		errs.Add(generic.ValidationError("description: is required"))
	}
	return errs.Err()
}

// ListRequests returns the claims p may see in creation order.
func (s *RequestService) ListRequests(ctx context.Context, p Principal) ([]Request, error) {
	filter, err := ListScope(p)
	if err != nil {
		return nil, err
	}
	return s.Store.Requests().List(ctx, filter)
}

// GetRequest returns a claim visible to p.
func (s *RequestService) GetRequest(ctx context.Context, p Principal, id int64) (*Request, error) {
	req, err := s.Store.Requests().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanView(p, req); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequest changes title and description. Status and claim number are
// never written here.
func (s *RequestService) UpdateRequest(ctx context.Context, p Principal, id int64, patch RequestPatch) (*Request, error) {
	var title, desc *string
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		title = &t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		desc = &d
	}
	if err := validateRequestFields(title, desc); err != nil {
		return nil, err
	}

	var req *Request
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		var err error
		req, err = repos.Requests().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := CanModify(p, req); err != nil {
			return err
		}
		if title != nil {
			req.Title = *title
		}
		if desc != nil {
			req.Description = *desc
		}
		req.UpdatedAt = s.Now().UTC()
		return repos.Requests().Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequest removes a claim and its lines.
func (s *RequestService) DeleteRequest(ctx context.Context, p Principal, id int64) error {
	var requestNo string
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		req, err := repos.Requests().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := CanModify(p, req); err != nil {
			return err
		}
		requestNo = req.RequestID
		return repos.Requests().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"request": requestNo,
		"actor":   p.UserID,
	}).Info("request deleted")
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// TransitionStatus moves a claim to target. HR approval continues to
// completed in the same call.
func (s *RequestService) TransitionStatus(ctx context.Context, p Principal, id int64, target string) (*Request, error) {
	var (
		req  *Request
		path []Status
		from Status
	)
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		var err error
		req, err = repos.Requests().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := CanView(p, req); err != nil {
			return err
		}
		path, err = s.Lifecycle.Transition(p.Role, req.Status, Status(target))
		if err != nil {
			return err
		}

		from = req.Status
		for _, st := range path {
			switch st {
			case StatusManagerApproved:
				actor := p.UserID
				req.LineManagerID = &actor
			case StatusHRApproval:
				actor := p.UserID
				req.HRID = &actor
			}
		}
		req.Status = path[len(path)-1]
		req.UpdatedAt = s.Now().UTC()
		return repos.Requests().Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"request": req.RequestID,
		"from":    from,
		"to":      req.Status,
		"actor":   p.UserID,
	}).Info("request status changed")

	s.fire(ctx, eventsFor(req, path, p, s.Now().UTC()))
	return req, nil
}

func (s *RequestService) fire(ctx context.Context, events []Event) {
	ctx = context.WithoutCancel(ctx)
	for _, e := range events {
		if err := s.Notifier.Notify(ctx, e); err != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{
				"event":   e.Kind,
				"request": e.RequestNo,
			}).Warn("notification failed")
		}
	}
}

// =============================================================================
// LINES
// =============================================================================

// CreateLines validates and stores lines for a claim. A single submission
// fails on its first problem; a batch reports every problem and stores
// nothing unless all lines pass.
func (s *RequestService) CreateLines(ctx context.Context, p Principal, requestID int64, inputs []LineInput, batch bool) ([]Line, error) {
	var lines []Line
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		parent, err := repos.Requests().Get(ctx, requestID)
		if err != nil {
			return err
		}
		if err := CanView(p, parent); err != nil {
			return err
		}

		valid, err := s.Validator.Validate(ctx, repos, p, parent, inputs, ValidateOptions{FailFast: !batch})
		if err != nil {
			return err
		}

		now := s.Now().UTC()
		lines = make([]Line, 0, len(valid))
		for _, v := range valid {
			line := Line{
				RequestID:        parent.ID,
				JobDescription:   parent.Description,
				EmployeeID:       v.Employee.ID,
				Response:         ResponsePending,
				AttendanceStatus: AttendancePending,
				CreatedAt:        now,
			}
			line.Apply(v.Allocation)
			if err := repos.Lines().Create(ctx, &line); err != nil {
				return err
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"request": requestID,
		"lines":   len(lines),
		"actor":   p.UserID,
	}).Info("lines created")
	return lines, nil
}

// GetLine returns a line whose claim is visible to p.
func (s *RequestService) GetLine(ctx context.Context, p Principal, id int64) (*Line, error) {
	line, err := s.Store.Lines().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetRequest(ctx, p, line.RequestID); err != nil {
		return nil, err
	}
	return line, nil
}

// ListLines returns the lines of one claim, or every line p may see when
// requestID is nil.
func (s *RequestService) ListLines(ctx context.Context, p Principal, requestID *int64) ([]Line, error) {
	if requestID != nil {
		if _, err := s.GetRequest(ctx, p, *requestID); err != nil {
			return nil, err
		}
		return s.Store.Lines().List(ctx, LineFilter{RequestID: requestID})
	}
	filter, err := LineScope(p)
	if err != nil {
		return nil, err
	}
	return s.Store.Lines().List(ctx, filter)
}

// UpdateLine changes a line's employee or dates and re-derives its counts
// and amount. The job description keeps its creation-time copy.
func (s *RequestService) UpdateLine(ctx context.Context, p Principal, id int64, patch LinePatch) (*Line, error) {
	var line *Line
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		var err error
		line, err = repos.Lines().Get(ctx, id)
		if err != nil {
			return err
		}
		parent, err := repos.Requests().Get(ctx, line.RequestID)
		if err != nil {
			return err
		}

		in := LineInput{EmployeeID: line.EmployeeID, Dates: line.Dates}
		if patch.EmployeeID != nil {
			in.EmployeeID = *patch.EmployeeID
		}
		if patch.Dates != nil {
			in.Dates = patch.Dates
		}

		valid, err := s.Validator.Validate(ctx, repos, p, parent, []LineInput{in},
			ValidateOptions{FailFast: true, ExcludeLineID: line.ID})
		if err != nil {
			return err
		}

		if in.EmployeeID != line.EmployeeID {
			line.Response = ResponsePending
			line.ResponseTime = nil
			line.AttendanceStatus = AttendancePending
		}
		line.EmployeeID = in.EmployeeID
		line.Apply(valid[0].Allocation)
		return repos.Lines().Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a line.
func (s *RequestService) DeleteLine(ctx context.Context, p Principal, id int64) error {
	return s.Store.WithTx(ctx, func(repos Repos) error {
		line, err := repos.Lines().Get(ctx, id)
		if err != nil {
			return err
		}
		parent, err := repos.Requests().Get(ctx, line.RequestID)
		if err != nil {
			return err
		}
		if err := CanModifyLines(p, parent); err != nil {
			return err
		}
		return repos.Lines().Delete(ctx, id)
	})
}

// RespondToLine records the booked employee's acceptance or refusal.
func (s *RequestService) RespondToLine(ctx context.Context, p Principal, id int64, response string) (*Line, error) {
	resp := Response(response)
	if resp != ResponseAccepted && resp != ResponseRejected {
		return nil, generic.ValidationError("response: must be accepted or rejected")
	}
	return s.mutateLine(ctx, id, func(parent *Request, line *Line) error {
		if err := CanRespond(p, parent, line); err != nil {
			return err
		}
		now := s.Now().UTC()
		line.Response = resp
		line.ResponseTime = &now
		return nil
	})
}

// CertifyAttendance records whether the employee turned up.
func (s *RequestService) CertifyAttendance(ctx context.Context, p Principal, id int64, attendance string) (*Line, error) {
	att := Attendance(attendance)
	if att != AttendancePresent && att != AttendanceAbsent {
		return nil, generic.ValidationError("attendance_status: must be present or absent")
	}
	return s.mutateLine(ctx, id, func(parent *Request, line *Line) error {
		if err := CanCertify(p, parent); err != nil {
			return err
		}
		line.AttendanceStatus = att
		return nil
	})
}

func (s *RequestService) mutateLine(ctx context.Context, id int64, fn func(*Request, *Line) error) (*Line, error) {
	var line *Line
	err := s.Store.WithTx(ctx, func(repos Repos) error {
		var err error
		line, err = repos.Lines().Get(ctx, id)
		if err != nil {
			return err
		}
		parent, err := repos.Requests().Get(ctx, line.RequestID)
		if err != nil {
			return err
		}
		if err := fn(parent, line); err != nil {
			return err
		}
		return repos.Lines().Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}
