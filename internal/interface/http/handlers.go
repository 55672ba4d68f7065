package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduguard/eduguard-backend/internal/application/command"
	"github.com/eduguard/eduguard-backend/internal/application/query"
	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// maxBodyBytes bounds request bodies; the largest legitimate payload is a
// student registration with a handful of guardians.
const maxBodyBytes = 1 << 20

// requestValidator wraps the struct validator used on all request DTOs.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// decode reads, unmarshals and validates a JSON request body into dst.
func (rv *requestValidator) decode(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return err
	}
	return rv.v.Struct(dst)
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrAlreadyProcessed),
		errors.Is(err, shared.ErrConcurrentModification):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrValueOutOfRange),
		errors.Is(err, shared.ErrFutureTimestamp),
		errors.Is(err, shared.ErrInvalidFormat),
		errors.Is(err, shared.ErrInvalidEntity),
		errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "EduGuard API",
		"version":     "v1",
		"description": "Dropout risk detection for Rwandan schools",
		"endpoints": map[string]string{
			"health":       "/health",
			"students":     "/api/v1/students",
			"flags":        "/api/v1/schools/{id}/flags",
			"risk_summary": "/api/v1/schools/{id}/risk-summary",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type guardianPayload struct {
	Name         string `json:"name" validate:"required"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone" validate:"omitempty,e164"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type registerStudentRequest struct {
	SchoolID           string            `json:"school_id" validate:"required"`
	FirstName          string            `json:"first_name" validate:"required"`
	LastName           string            `json:"last_name" validate:"required"`
	ClassName          string            `json:"class_name"`
	UbudeheLevel       int               `json:"ubudehe_level" validate:"min=0,max=4"`
	HasParents         bool              `json:"has_parents"`
	FamilyStable       bool              `json:"family_stable"`
	DistanceToSchoolKm *float64          `json:"distance_to_school_km" validate:"omitempty,gte=0"`
	Guardians          []guardianPayload `json:"guardians" validate:"dive"`
}

// handleRegisterStudent handles POST /api/v1/students
func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerStudentRequest
	if err := s.validate.decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	guardians := make([]student.Guardian, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		guardians = append(guardians, student.Guardian{
			Name:         g.Name,
			Relationship: g.Relationship,
			Phone:        shared.PhoneNumber(g.Phone),
			Email:        shared.Email(g.Email),
		})
	}

	cmd := command.RegisterStudentCommand{
		SchoolID:  req.SchoolID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ClassName: req.ClassName,
		Profile: student.SocioEconomicProfile{
			UbudeheLevel:       student.UbudeheLevel(req.UbudeheLevel),
			HasParents:         req.HasParents,
			FamilyStable:       req.FamilyStable,
			DistanceToSchoolKm: req.DistanceToSchoolKm,
		},
		Guardians: guardians,
	}

	result, err := s.deps.RegisterStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleGetRiskProfile handles GET /api/v1/students/{id}/risk-profile
func (s *Server) handleGetRiskProfile(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	q := query.GetStudentRiskProfileQuery{
		StudentID:    studentID,
		HistoryLimit: getQueryParamInt(r, "history_limit", 0),
	}

	result, err := s.deps.RiskProfileHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type recordAttendanceRequest struct {
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Status     string `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	RecordedBy string `json:"recorded_by" validate:"required"`
}

// handleRecordAttendance handles POST /api/v1/students/{id}/attendance
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	var req recordAttendanceRequest
	if err := s.validate.decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, schoolcal.KigaliTZ)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	cmd := command.RecordAttendanceCommand{
		StudentID:  studentID,
		Date:       date,
		Status:     academics.AttendanceStatus(req.Status),
		RecordedBy: req.RecordedBy,
	}

	result, err := s.deps.RecordAttendanceHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type recordPerformanceRequest struct {
	Subject      string  `json:"subject" validate:"required"`
	Term         int     `json:"term" validate:"omitempty,min=1,max=3"`
	AcademicYear string  `json:"academic_year"`
	Score        float64 `json:"score" validate:"gte=0"`
	MaxScore     float64 `json:"max_score" validate:"required,gt=0"`
	AssessedAt   string  `json:"assessed_at" validate:"omitempty,datetime=2006-01-02"`
	RecordedBy   string  `json:"recorded_by" validate:"required"`
}

// handleRecordPerformance handles POST /api/v1/students/{id}/performance
func (s *Server) handleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	var req recordPerformanceRequest
	if err := s.validate.decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var assessedAt time.Time
	if req.AssessedAt != "" {
		assessedAt, _ = time.ParseInLocation("2006-01-02", req.AssessedAt, schoolcal.KigaliTZ)
	}

	cmd := command.RecordPerformanceCommand{
		StudentID:    studentID,
		Subject:      req.Subject,
		Term:         schoolcal.Term(req.Term),
		AcademicYear: req.AcademicYear,
		Score:        req.Score,
		MaxScore:     req.MaxScore,
		AssessedAt:   assessedAt,
		RecordedBy:   req.RecordedBy,
	}

	result, err := s.deps.RecordPerformanceHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DETECTION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type detectRequest struct {
	Path        string `json:"path" validate:"omitempty,oneof=full weekly_attendance term_performance socioeconomic"`
	TriggeredBy string `json:"triggered_by" validate:"omitempty,max=64"`
}

// handleDetectStudent handles POST /api/v1/students/{id}/detect
func (s *Server) handleDetectStudent(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	req := detectRequest{}
	// The body is optional; an empty body means a full pass.
	if r.ContentLength != 0 {
		if err := s.validate.decode(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	cmd := command.DetectStudentRisksCommand{
		StudentID:   studentID,
		Path:        command.DetectionPath(req.Path),
		TriggeredBy: shared.ActorID(req.TriggeredBy),
	}

	result, err := s.deps.DetectStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDetectSchool handles POST /api/v1/schools/{id}/detect
func (s *Server) handleDetectSchool(w http.ResponseWriter, r *http.Request) {
	schoolID := r.PathValue("id")

	req := detectRequest{}
	if r.ContentLength != 0 {
		if err := s.validate.decode(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	cmd := command.DetectSchoolRisksCommand{
		SchoolID:    schoolID,
		Path:        command.DetectionPath(req.Path),
		TriggeredBy: shared.ActorID(req.TriggeredBy),
	}

	result, err := s.deps.DetectSchoolHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// FLAG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListActiveFlags handles GET /api/v1/schools/{id}/flags
func (s *Server) handleListActiveFlags(w http.ResponseWriter, r *http.Request) {
	schoolID := r.PathValue("id")

	q := query.ListActiveFlagsQuery{
		SchoolID: schoolID,
		Severity: risk.Severity(getQueryParam(r, "severity", "")),
		Type:     risk.RiskType(getQueryParam(r, "type", "")),
		Limit:    getQueryParamInt(r, "limit", 0),
	}

	result, err := s.deps.ListActiveFlagsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type resolveFlagRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// handleResolveFlag handles POST /api/v1/flags/{id}/resolve
func (s *Server) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	flagID := r.PathValue("id")

	var req resolveFlagRequest
	if err := s.validate.decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cmd := command.ResolveFlagCommand{
		FlagID:     flagID,
		ResolvedBy: shared.ActorID(req.ResolvedBy),
		Notes:      req.Notes,
	}

	result, err := s.deps.ResolveFlagHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSchoolRiskSummary handles GET /api/v1/schools/{id}/risk-summary
func (s *Server) handleSchoolRiskSummary(w http.ResponseWriter, r *http.Request) {
	schoolID := r.PathValue("id")

	result, err := s.deps.SchoolRiskSummaryHandler.Handle(r.Context(), query.GetSchoolRiskSummaryQuery{
		SchoolID: schoolID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListSchoolNotifications handles GET /api/v1/schools/{id}/notifications
func (s *Server) handleListSchoolNotifications(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListNotificationsHandler.Handle(r.Context(), query.ListNotificationsQuery{
		SchoolID: r.PathValue("id"),
		Limit:    getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListStudentNotifications handles GET /api/v1/students/{id}/notifications
func (s *Server) handleListStudentNotifications(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListNotificationsHandler.Handle(r.Context(), query.ListNotificationsQuery{
		StudentID: r.PathValue("id"),
		Limit:     getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
