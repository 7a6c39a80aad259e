package models

// Project represents a project as the backend sends it
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// ProjectInput is the body of project create and update requests
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectItem is the dashboard form of a project.
// Timestamps stay the backend strings so the translation never alters a value.
type ProjectItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Created     string `json:"creado"`
}

// ToItem renames a wire project into its dashboard form
func ToItem(p Project) ProjectItem {
	return ProjectItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Created:     p.CreatedAt,
	}
}

// FromItem is the inverse of ToItem. UpdatedAt is not part of the dashboard form.
func FromItem(it ProjectItem) Project {
	return Project{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		CreatedAt:   it.Created,
	}
}

// VideoStatus is the processing state reported by the backend
type VideoStatus string

const (
	VideoUploaded   VideoStatus = "UPLOADED"
	VideoProcessing VideoStatus = "PROCESSING"
	VideoError      VideoStatus = "ERROR"
)

// Video represents a video from the backend
type Video struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	SecureURL        string      `json:"secureUrl"`
	Format           string      `json:"format"`
	DurationInMillis int64       `json:"durationInMillis"`
	SizeInBytes      int64       `json:"sizeInBytes"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	Status           VideoStatus `json:"status"`
	ProjectID        int64       `json:"projectId"`
	ProjectName      string      `json:"projectName"`
	CreatedAt        string      `json:"createdAt"`
	UpdatedAt        string      `json:"updatedAt"`
}

// Downloadable reports whether the video can be downloaded or edited
func (v Video) Downloadable() bool {
	return v.Status == VideoUploaded
}

// VideoInput is the body of a video title update
type VideoInput struct {
	Title string `json:"title"`
}

// Pageable is the page request echo some endpoints include
type Pageable struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// Page is the paged envelope returned by list endpoints
type Page[T any] struct {
	Content          []T       `json:"content"`
	TotalElements    int64     `json:"totalElements"`
	TotalPages       int       `json:"totalPages"`
	Number           int       `json:"number"`
	Size             int       `json:"size"`
	NumberOfElements int       `json:"numberOfElements"`
	First            bool      `json:"first,omitempty"`
	Last             bool      `json:"last,omitempty"`
	Pageable         *Pageable `json:"pageable,omitempty"`
}

// Envelope wraps payloads of the /api/v1 endpoints
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// LoginRequest is the sign-in body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the data part of a successful sign-in
type Session struct {
	Token     string `json:"token"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// RegisterRequest is the sign-up body
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest sets a new password with a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// VerifyEmailRequest confirms an email address
type VerifyEmailRequest struct {
	Token string `json:"token"`
}
