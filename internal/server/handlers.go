package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/clarkhq/clark/internal/db"
	"github.com/clarkhq/clark/internal/models"
	"github.com/clarkhq/clark/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrDataIntegrity):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var input models.SpaceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if input.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	id, err := s.db.CreateSpace(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"space_id": id})
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.db.ListSpaces(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spaces": spaces})
}

type ingestRequest struct {
	SpaceID  int64  `json:"space_id"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	var result *service.IngestResult
	var err error
	switch {
	case req.URL != "":
		result, err = s.ingest.IngestURL(r.Context(), req.SpaceID, req.URL)
	case req.Text != "" && req.Filename != "":
		result, err = s.ingest.IngestText(r.Context(), req.SpaceID, req.Filename, "txt", "", req.Text)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "either url or filename+text is required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id":  result.DocumentID,
		"filename":     result.Filename,
		"chunks_added": result.Chunks,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	spaceID, err := pathID(r, "spaceID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	documents, err := s.db.DocumentsForSpace(r.Context(), spaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": documents})
}

func (s *Server) handleDocumentThreads(w http.ResponseWriter, r *http.Request) {
	documentID, err := pathID(r, "documentID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	threads, err := s.db.ThreadsForDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

type chatRequest struct {
	UserID     int64  `json:"user_id"`
	SpaceID    int64  `json:"space_id"`
	Message    string `json:"message"`
	ThreadID   *int64 `json:"thread_id,omitempty"`
	ParentID   *int64 `json:"parent_message_id,omitempty"`
	IsFork     bool   `json:"is_fork,omitempty"`
	UseHistory *bool  `json:"use_history,omitempty"`
}

func (c chatRequest) toInput() service.PostMessageInput {
	useHistory := true
	if c.UseHistory != nil {
		useHistory = *c.UseHistory
	}
	return service.PostMessageInput{
		UserID:     c.UserID,
		SpaceID:    c.SpaceID,
		Text:       c.Message,
		ThreadID:   c.ThreadID,
		ParentID:   c.ParentID,
		IsFork:     c.IsFork,
		UseHistory: useHistory,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := s.chat.PostMessage(r.Context(), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	spaceID, err := pathID(r, "spaceID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	threads, err := s.db.ThreadsForSpace(r.Context(), spaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "threadID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	thread, err := s.db.GetThread(r.Context(), threadID)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := s.conversation.ThreadMessages(r.Context(), threadID)
	if err != nil {
		writeError(w, err)
		return
	}
	forks, err := s.conversation.ForkIndex(r.Context(), threadID)
	if err != nil {
		writeError(w, err)
		return
	}
	anchors, err := s.db.AnchorsForThread(r.Context(), threadID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thread":   thread,
		"messages": messages,
		"forks":    forks,
		"anchors":  anchors,
	})
}

// handleThreadMessage posts a turn into an existing thread. Same semantics
// as /chat with the thread id taken from the path.
func (s *Server) handleThreadMessage(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "threadID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	req.ThreadID = &threadID

	result, err := s.chat.PostMessage(r.Context(), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type branchRequest struct {
	UserID   int64  `json:"user_id"`
	SpaceID  int64  `json:"space_id"`
	ParentID int64  `json:"parent_message_id"`
	Message  string `json:"message"`
}

// handleBranch starts an alternative continuation from an earlier message.
func (s *Server) handleBranch(w http.ResponseWriter, r *http.Request) {
	threadID, err := pathID(r, "threadID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req branchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Message == "" || req.ParentID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message and parent_message_id are required"})
		return
	}

	result, err := s.chat.PostMessage(r.Context(), service.PostMessageInput{
		UserID:     req.UserID,
		SpaceID:    req.SpaceID,
		Text:       req.Message,
		ThreadID:   &threadID,
		ParentID:   &req.ParentID,
		IsFork:     true,
		UseHistory: true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := pathID(r, "branchID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	full := r.URL.Query().Get("full") == "true"

	messages, err := s.conversation.BranchMessages(r.Context(), branchID, full)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}
