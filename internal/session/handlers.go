package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Diegogtz03/kofy-app/internal/prescriptions"
	"github.com/Diegogtz03/kofy-app/internal/reminders"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Handlers exposes the session lifecycle, visit history, prescription
// ingestion and reminder operations over HTTP
type Handlers struct {
	controller *Controller
	visits     interfaces.VisitStore
	scheduler  *reminders.Scheduler
	ingestor   *prescriptions.Ingestor
	logger     *logger.Logger
}

// NewHandlers creates the HTTP handler set
func NewHandlers(controller *Controller, visits interfaces.VisitStore, scheduler *reminders.Scheduler, ingestor *prescriptions.Ingestor, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: controller,
		visits:     visits,
		scheduler:  scheduler,
		ingestor:   ingestor,
		logger:     log,
	}
}

// RegisterRoutes configures the companion service routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Visit records
	router.HandleFunc("/visits", h.createVisitHandler).Methods("POST")
	router.HandleFunc("/visits", h.listVisitsHandler).Methods("GET")
	router.HandleFunc("/visits/{id}", h.getVisitHandler).Methods("GET")
	router.HandleFunc("/visits/{id}", h.deleteVisitHandler).Methods("DELETE")

	// Session lifecycle
	router.HandleFunc("/visits/{id}/session", h.startSessionHandler).Methods("POST")
	router.HandleFunc("/visits/{id}/session/finish", h.finishSessionHandler).Methods("POST")
	router.HandleFunc("/visits/{id}/session/poll", h.pollHandler).Methods("POST")
	router.HandleFunc("/visits/{id}/session", h.cancelSessionHandler).Methods("DELETE")

	// Prescription ingestion
	router.HandleFunc("/visits/{id}/prescription", h.ingestPrescriptionHandler).Methods("POST")

	// Reminders
	router.HandleFunc("/visits/{id}/reminders", h.confirmReminderHandler).Methods("POST")
	router.HandleFunc("/reminders", h.listRemindersHandler).Methods("GET")
	router.HandleFunc("/reminders/{handle}", h.deleteReminderHandler).Methods("DELETE")

	h.logger.Info("Companion service routes configured")
}

// createVisitRequest is the payload for creating a new visit record
type createVisitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Doctor      string `json:"doctor"`
	ColorIndex  int    `json:"color_index"`
}

// createVisitHandler creates a new visit record, session not yet opened
func (h *Handlers) createVisitHandler(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Name == "" {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput,
			"visit name is required", map[string]interface{}{"field": "name"}))
		return
	}

	record := &types.VisitRecord{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		Doctor:      req.Doctor,
		ColorIndex:  req.ColorIndex,
	}

	if err := h.visits.Create(r.Context(), record); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, record)
}

// listVisitsHandler lists all visit records
func (h *Handlers) listVisitsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.visits.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, records)
}

// getVisitHandler retrieves one visit record
func (h *Handlers) getVisitHandler(w http.ResponseWriter, r *http.Request) {
	record, err := h.visits.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// deleteVisitHandler deletes a visit record (user action)
func (h *Handlers) deleteVisitHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.visits.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Visit deleted"})
}

// startSessionHandler opens the remote session for a visit
func (h *Handlers) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	sctx, err := h.controller.StartSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, sctx)
}

// finishSessionRequest carries the accumulated transcript
type finishSessionRequest struct {
	Transcript string `json:"transcript"`
}

// finishSessionHandler submits the transcript and moves the visit into
// processing. The visit enters processing even when submission fails; the
// response then carries both the new state and the error.
func (h *Handlers) finishSessionHandler(w http.ResponseWriter, r *http.Request) {
	visitID := mux.Vars(r)["id"]

	var req finishSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.controller.FinishSession(r.Context(), visitID, req.Transcript)
	state := h.controller.State(visitID)

	response := map[string]interface{}{"state": state}
	if err != nil {
		if state != types.StateProcessing {
			h.writeError(w, err)
			return
		}
		response["warning"] = userMessage(err)
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// pollHandler checks whether the visit's summary is ready
func (h *Handlers) pollHandler(w http.ResponseWriter, r *http.Request) {
	record, err := h.controller.Poll(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// cancelSessionHandler abandons an open session without submitting
func (h *Handlers) cancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Session cancelled"})
}

// ingestPrescriptionRequest carries the raw prescription text
type ingestPrescriptionRequest struct {
	Prescription string `json:"prescription"`
	PatientInfo  string `json:"patientInfo"`
}

// ingestPrescriptionHandler converts prescription text into explanations and
// reminder candidates for the visit
func (h *Handlers) ingestPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	visitID := mux.Vars(r)["id"]

	var req ingestPrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Prescription == "" {
		h.writeError(w, types.NewValidationError(types.ErrCodeInvalidInput,
			"prescription text is required", map[string]interface{}{"field": "prescription"}))
		return
	}

	extraction, err := h.ingestor.Ingest(r.Context(), req.Prescription, req.PatientInfo, visitID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, extraction)
}

// confirmReminderRequest is a user-confirmed reminder candidate with its
// chosen start time and expiration date
type confirmReminderRequest struct {
	DrugName       string    `json:"drugName"`
	Dosage         string    `json:"dosis"`
	EveryXHours    int       `json:"everyXHours"`
	StartTime      time.Time `json:"startTime"`
	ExpirationDate time.Time `json:"expirationDate"`
}

// confirmReminderHandler schedules a reminder the user confirmed and records
// it on the visit
func (h *Handlers) confirmReminderHandler(w http.ResponseWriter, r *http.Request) {
	visitID := mux.Vars(r)["id"]

	var req confirmReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reminder, err := h.scheduler.Schedule(r.Context(), req.DrugName, req.Dosage,
		req.EveryXHours, req.StartTime, req.ExpirationDate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.ingestor.ConfirmReminder(r.Context(), visitID, reminder); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, reminder)
}

// listRemindersHandler lists all persisted reminders
func (h *Handlers) listRemindersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.scheduler.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, list)
}

// deleteReminderHandler cancels a reminder by its scheduler handle
func (h *Handlers) deleteReminderHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Cancel(r.Context(), mux.Vars(r)["handle"]); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Reminder cancelled"})
}

// writeError maps a structured error onto an HTTP status and JSON body
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]interface{}{
		"error": userMessage(err),
	}

	if ke, ok := err.(*types.KofyError); ok {
		switch ke.Type {
		case types.ErrorTypeUnauthorized:
			status = http.StatusUnauthorized
		case types.ErrorTypeValidation, types.ErrorTypeInvalidSchedule:
			status = http.StatusBadRequest
		case types.ErrorTypeNotFound:
			status = http.StatusNotFound
		case types.ErrorTypeConflict:
			status = http.StatusConflict
		case types.ErrorTypeNetwork, types.ErrorTypeServer:
			status = http.StatusBadGateway
		}
		body["type"] = ke.Type
		body["code"] = ke.Code
		if len(ke.Details) > 0 {
			body["details"] = ke.Details
		}
	}

	h.logger.WithError(err).WithField("status", status).Warn("Request failed")
	h.writeJSONResponse(w, status, body)
}

// writeErrorResponse writes a plain error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	h.logger.WithError(err).Warn(message)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	h.writeJSONResponse(w, statusCode, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// userMessage extracts the human-readable message from an error
func userMessage(err error) string {
	if ke, ok := err.(*types.KofyError); ok {
		return ke.Message
	}
	return err.Error()
}
