// Package fakeapi provides an in-process Elevideo backend for tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jhorman9/elevideo/internal/models"
)

// Default fixtures
const (
	DefaultToken    = "T"
	DefaultEmail    = "ana@example.com"
	DefaultPassword = "secret1"
	ResetToken      = "reset-token"
	VerifyToken     = "verify-token"
)

// Recorded is one request as the server saw it.
type Recorded struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte // JSON bodies only

	// Multipart uploads
	PartOrder  []string
	Title      string
	FileName   string
	FileType   string
	FileSize   int64
	RawContent string // Content-Type header of the request
}

type failure struct {
	status int
	body   string
}

// Server is a configurable fake of the Elevideo API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	users    map[string]string
	projects map[int64]models.Project
	videos   map[int64][]models.Video
	nextID   int64
	clock    time.Time
	requests []Recorded
	failures map[string][]failure
	health   int

	// Upload behaviour
	UploadStatus    models.VideoStatus
	BareUploadReply bool
}

// New starts a server with one registered user whose session token is DefaultToken.
func New() *Server {
	s := &Server{
		token:        DefaultToken,
		users:        map[string]string{DefaultEmail: DefaultPassword},
		projects:     make(map[int64]models.Project),
		videos:       make(map[int64][]models.Video),
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		failures:     make(map[string][]failure),
		UploadStatus: models.VideoUploaded,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Get("/api/health", s.handleHealth)
	r.Get("/files/{file}", s.handleFile)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/forgot-password", s.handleForgot)
		r.Post("/reset-password", s.handleReset)
		r.Post("/verify-email", s.handleVerify)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Get("/projects/{id}", s.handleGetProject)
		r.Put("/projects/{id}", s.handleUpdateProject)
		r.Delete("/projects/{id}", s.handleDeleteProject)

		r.Get("/api/v1/projects/{pid}/videos", s.handleListVideos)
		r.Post("/api/v1/projects/{pid}/videos", s.handleUpload)
		r.Get("/api/v1/projects/{pid}/videos/{vid}", s.handleGetVideo)
		r.Put("/api/v1/projects/{pid}/videos/{vid}", s.handleUpdateVideo)
		r.Delete("/api/v1/projects/{pid}/videos/{vid}", s.handleDeleteVideo)
	})
	return r
}

// SetToken changes the accepted bearer token; "" rejects every authenticated call.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Fail makes the next request matching method and path answer status with body.
// Calls queue up; each is consumed once.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// AddProject stores a project and returns it.
func (s *Server) AddProject(name, description string) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addProjectLocked(name, description)
}

// AddVideo stores a video in project pid.
func (s *Server) AddVideo(pid int64, title, format string, status models.VideoStatus) models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addVideoLocked(pid, title, format, status, 1024)
}

// Projects returns the stored projects ordered by id.
func (s *Server) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Videos returns the videos of project pid.
func (s *Server) Videos(pid int64) []models.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Video(nil), s.videos[pid]...)
}

// Requests returns every recorded request.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestsTo returns recorded requests with the given method and path.
func (s *Server) RequestsTo(method, path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// HealthHits counts liveness probes.
func (s *Server) HealthHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// ResetRequests forgets recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

func (s *Server) addProjectLocked(name, description string) models.Project {
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	ts := s.clock.Format(time.RFC3339)
	p := models.Project{ID: s.nextID, Name: name, Description: description, CreatedAt: ts, UpdatedAt: ts}
	s.projects[p.ID] = p
	return p
}

func (s *Server) addVideoLocked(pid int64, title, format string, status models.VideoStatus, size int64) models.Video {
	s.nextID++
	s.clock = s.clock.Add(time.Minute)
	ts := s.clock.Format(time.RFC3339)
	v := models.Video{
		ID:               s.nextID,
		Title:            title,
		SecureURL:        fmt.Sprintf("%s/files/%d.%s", s.URL, s.nextID, format),
		Format:           format,
		DurationInMillis: 1000,
		SizeInBytes:      size,
		Width:            1920,
		Height:           1080,
		Status:           status,
		ProjectID:        pid,
		ProjectName:      s.projects[pid].Name,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	s.videos[pid] = append(s.videos[pid], v)
	return v
}

// middleware

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Recorded{
			Method:     r.Method,
			Path:       r.URL.Path,
			RawQuery:   r.URL.RawQuery,
			Header:     r.Header.Clone(),
			RawContent: r.Header.Get("Content-Type"),
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			rec = s.readMultipart(r, rec)
			r.Body = io.NopCloser(strings.NewReader(""))
		} else if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			rec.Body = body
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		ctx := r.Context()
		next.ServeHTTP(w, r.WithContext(withUpload(ctx, rec)))
	})
}

func (s *Server) readMultipart(r *http.Request, rec Recorded) Recorded {
	mr, err := r.MultipartReader()
	if err != nil {
		return rec
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return rec
		}
		rec.PartOrder = append(rec.PartOrder, part.FormName())
		switch part.FormName() {
		case "video":
			rec.FileName = part.FileName()
			rec.FileType = part.Header.Get("Content-Type")
			n, _ := io.Copy(io.Discard, part)
			rec.FileSize = n
		case "title":
			b, _ := io.ReadAll(part)
			rec.Title = string(b)
		default:
			_, _ = io.Copy(io.Discard, part)
		}
		_ = part.Close()
	}
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		if f.body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		if token == "" || r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": status < 300, "message": msg})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	return page, size
}

func paginate[T any](items []T, page, size int) models.Page[T] {
	total := len(items)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := append([]T{}, items[start:end]...)
	return models.Page[T]{
		Content:          content,
		TotalElements:    int64(total),
		TotalPages:       totalPages,
		Number:           page,
		Size:             size,
		NumberOfElements: len(content),
		First:            page == 0,
		Last:             page >= totalPages-1,
		Pageable:         &models.Pageable{PageNumber: page, PageSize: size},
	}
}
