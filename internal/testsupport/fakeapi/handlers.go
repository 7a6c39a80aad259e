package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jhorman9/elevideo/internal/models"
)

type uploadKey struct{}

func withUpload(ctx context.Context, rec Recorded) context.Context {
	return context.WithValue(ctx, uploadKey{}, rec)
}

func uploadFrom(ctx context.Context) Recorded {
	rec, _ := ctx.Value(uploadKey{}).(Recorded)
	return rec
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.health++
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte("video-bytes:" + chi.URLParam(r, "file")))
}

// auth

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	s.mu.Lock()
	pw, ok := s.users[req.Email]
	token := s.token
	s.mu.Unlock()
	if !ok || pw != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, models.Envelope[models.Session]{
		Success: true,
		Message: "signed in",
		Data:    models.Session{Token: token, Email: req.Email, FirstName: "Ana"},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return
	}
	if req.Email == "" || req.Password == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"validation failed","fieldErrors":{"email":"required","password":"required"}}`))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeMessage(w, http.StatusConflict, "email already registered")
		return
	}
	s.users[req.Email] = req.Password
	writeMessage(w, http.StatusCreated, "check your inbox to verify your email")
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	writeMessage(w, http.StatusOK, "if the address exists a reset link was sent")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Token != ResetToken {
		writeMessage(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Token != VerifyToken {
		writeMessage(w, http.StatusBadRequest, "invalid verification token")
		return
	}
	writeMessage(w, http.StatusOK, "email verified")
}

// projects

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	s.mu.Lock()
	items := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		items = append(items, p)
	}
	s.mu.Unlock()

	desc := !strings.EqualFold(r.URL.Query().Get("sortDirection"), "ASC")
	sort.Slice(items, func(i, j int) bool {
		if desc {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].CreatedAt < items[j].CreatedAt
	})
	writeJSON(w, http.StatusOK, paginate(items, page, size))
}

func decodeProject(w http.ResponseWriter, r *http.Request) (models.ProjectInput, bool) {
	var in models.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed body")
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"validation failed","fieldErrors":{"name":"must not be blank"}}`))
		return in, false
	}
	return in, true
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeProject(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p := s.addProjectLocked(in.Name, in.Description)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request, param string) (models.Project, bool) {
	id, ok := pathID(r, param)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return models.Project{}, false
	}
	s.mu.Lock()
	p, ok := s.projects[id]
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "project not found")
		return models.Project{}, false
	}
	return p, true
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.lookupProject(w, r, "id"); ok {
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r, "id")
	if !ok {
		return
	}
	in, ok := decodeProject(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.clock = s.clock.Add(time.Minute)
	p.Name, p.Description = in.Name, in.Description
	p.UpdatedAt = s.clock.Format(time.RFC3339)
	s.projects[p.ID] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.projects, p.ID)
	delete(s.videos, p.ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// videos

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r, "pid")
	if !ok {
		return
	}
	page, size := pageParams(r)
	s.mu.Lock()
	items := append([]models.Video(nil), s.videos[p.ID]...)
	s.mu.Unlock()
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })

	writeJSON(w, http.StatusOK, models.Envelope[models.Page[models.Video]]{
		Success: true,
		Message: "videos retrieved",
		Data:    paginate(items, page, size),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProject(w, r, "pid")
	if !ok {
		return
	}
	rec := uploadFrom(r.Context())

	var missing []string
	if strings.TrimSpace(rec.Title) == "" {
		missing = append(missing, `"title":"must not be blank"`)
	}
	if rec.FileName == "" {
		missing = append(missing, `"video":"missing"`)
	}
	if len(missing) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"validation failed","fieldErrors":{` + strings.Join(missing, ",") + `}}`))
		return
	}

	format := "mp4"
	if i := strings.LastIndex(rec.FileName, "."); i >= 0 && i < len(rec.FileName)-1 {
		format = strings.ToLower(rec.FileName[i+1:])
	}

	s.mu.Lock()
	v := s.addVideoLocked(p.ID, rec.Title, format, s.UploadStatus, rec.FileSize)
	bare := s.BareUploadReply
	s.mu.Unlock()

	if bare {
		writeJSON(w, http.StatusCreated, v)
		return
	}
	writeJSON(w, http.StatusCreated, models.Envelope[models.Video]{Success: true, Message: "video uploaded", Data: v})
}

func (s *Server) lookupVideo(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	p, ok := s.lookupProject(w, r, "pid")
	if !ok {
		return 0, 0, false
	}
	vid, ok := pathID(r, "vid")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.videos[p.ID] {
		if v.ID == vid {
			return p.ID, i, true
		}
	}
	writeMessage(w, http.StatusNotFound, "video not found")
	return 0, 0, false
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	pid, i, ok := s.lookupVideo(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	v := s.videos[pid][i]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	pid, i, ok := s.lookupVideo(w, r)
	if !ok {
		return
	}
	var in models.VideoInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"validation failed","fieldErrors":{"title":"must not be blank"}}`))
		return
	}
	s.mu.Lock()
	s.videos[pid][i].Title = in.Title
	v := s.videos[pid][i]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	pid, i, ok := s.lookupVideo(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.videos[pid] = append(s.videos[pid][:i], s.videos[pid][i+1:]...)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
