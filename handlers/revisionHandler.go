package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"tutor/models"
	"tutor/services"
	"tutor/services/revision"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RevisionHandler exposes the tutoring session endpoints. Calls sharing a
// session id are serialized behind a per-session lock; the state machine
// itself has no protection against concurrent mutation of one session.
type RevisionHandler struct {
	revision *revision.Service
	content  *services.ContentService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRevisionHandler(revisionService *revision.Service, contentService *services.ContentService) *RevisionHandler {
	return &RevisionHandler{
		revision: revisionService,
		content:  contentService,
		locks:    map[string]*sync.Mutex{},
	}
}

func (h *RevisionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/topics", h.GetTopics).Methods("GET")
	router.HandleFunc("/revision/start", h.StartRevision).Methods("POST")
	router.HandleFunc("/revision/continue", h.ContinueRevision).Methods("POST")
	router.HandleFunc("/revision/sessions/{sessionId}", h.GetSession).Methods("GET")
}

func (h *RevisionHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.content.GetAvailableTopics()
	if err != nil {
		log.Printf("[ERROR] Failed to fetch topics: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to fetch topics")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.TopicsResponse{Topics: topics})
}

func (h *RevisionHandler) StartRevision(w http.ResponseWriter, r *http.Request) {
	var req models.StartRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode start request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Topic == "" || req.StudentID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "topic and student_id are required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	log.Printf("[INFO] Starting revision session %s for student %s on topic '%s'", sessionID, req.StudentID, req.Topic)

	unlock := h.lockSession(sessionID)
	result, err := h.revision.Start(req.Topic, req.StudentID, sessionID)
	unlock()
	if err != nil {
		log.Printf("[ERROR] Failed to start revision session %s: %v", sessionID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to start revision session")
		return
	}

	response := buildRevisionResponse(result, sessionID)
	response.Topic = req.Topic
	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *RevisionHandler) ContinueRevision(w http.ResponseWriter, r *http.Request) {
	var req models.ContinueRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode continue request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.SessionID == "" || req.Query == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "session_id and query are required")
		return
	}

	unlock := h.lockSession(req.SessionID)
	result, err := h.revision.Handle(req.SessionID, req.Query)
	unlock()
	if err != nil {
		log.Printf("[ERROR] Failed to handle input for session %s: %v", req.SessionID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to process input")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, buildRevisionResponse(result, req.SessionID))
}

func (h *RevisionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.revision.GetSession(sessionID)
	if err != nil {
		log.Printf("[ERROR] Failed to load session %s: %v", sessionID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

// lockSession serializes calls for one session id. The returned function
// releases the lock.
func (h *RevisionHandler) lockSession(sessionID string) func() {
	h.mu.Lock()
	lock, ok := h.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[sessionID] = lock
	}
	h.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// buildRevisionResponse flattens single-message results to a bare string,
// which is the shape existing clients expect for that format.
func buildRevisionResponse(result *models.RevisionResult, sessionID string) models.RevisionResponse {
	var response any = result.Messages
	if result.MessageFormat == models.MessageFormatSingle && len(result.Messages) == 1 {
		response = result.Messages[0].AssistantMessage
	}

	return models.RevisionResponse{
		Response:          response,
		MessageFormat:     result.MessageFormat,
		SessionID:         sessionID,
		ConversationCount: result.ConversationCount,
		IsSessionComplete: result.IsSessionComplete,
		CurrentStage:      result.CurrentStage,
		CurrentConcept:    result.CurrentConcept,
		Timestamp:         time.Now().UTC(),
	}
}

func (h *RevisionHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *RevisionHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
