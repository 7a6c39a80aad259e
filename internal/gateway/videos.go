package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/jhorman9/elevideo/internal/api"
	xlog "github.com/jhorman9/elevideo/internal/log"
	"github.com/jhorman9/elevideo/internal/media"
	"github.com/jhorman9/elevideo/internal/models"
	"github.com/jhorman9/elevideo/internal/ports"
)

// Default messages for refined upload failures.
const (
	MsgUploadValidation = "validation error"
	MsgUploadForbidden  = "you do not have permission to upload videos to this project"
)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "elevideo_uploads_total",
	Help: "Video uploads by outcome",
}, []string{"result"}) // success|failed|session_expired

// ErrNoDownloader is returned by Download when no host sink was configured.
var ErrNoDownloader = errors.New("no download handler configured")

// VideoListOptions selects one page of a project's videos.
type VideoListOptions struct {
	ProjectID int64
	ListOptions
}

// UploadInput is one file and the title to store it under.
type UploadInput struct {
	File  media.File
	Title string
}

// VideoPage is the list response: the page wrapped in the success envelope.
type VideoPage = models.Envelope[models.Page[models.Video]]

// Videos is the gateway for /api/v1/projects/{pid}/videos.
type Videos struct {
	client     *api.Client
	downloader ports.Downloader
	logger     zerolog.Logger
}

// VideosOption configures the videos gateway
type VideosOption func(*Videos)

// WithDownloader sets the host sink that receives download links.
func WithDownloader(d ports.Downloader) VideosOption {
	return func(g *Videos) { g.downloader = d }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) VideosOption {
	return func(g *Videos) { g.logger = l }
}

// NewVideos creates the videos gateway
func NewVideos(client *api.Client, opts ...VideosOption) *Videos {
	g := &Videos{client: client, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// List fetches one page of videos. The envelope is returned as sent.
func (g *Videos) List(ctx context.Context, opts VideoListOptions) (VideoPage, error) {
	var page VideoPage
	err := g.client.Get(ctx, videosPath(opts.ProjectID)+"?"+opts.query(), &page)
	return page, err
}

// Get fetches one video.
func (g *Videos) Get(ctx context.Context, projectID, videoID int64) (models.Video, error) {
	var raw json.RawMessage
	if err := g.client.Get(ctx, videoPath(projectID, videoID), &raw); err != nil {
		return models.Video{}, err
	}
	return decodeVideo(raw)
}

// Update changes the title of a video.
func (g *Videos) Update(ctx context.Context, projectID, videoID int64, in models.VideoInput) (models.Video, error) {
	var raw json.RawMessage
	if err := g.client.Put(ctx, videoPath(projectID, videoID), in, &raw); err != nil {
		return models.Video{}, err
	}
	return decodeVideo(raw)
}

// Delete removes a video.
func (g *Videos) Delete(ctx context.Context, projectID, videoID int64) error {
	return g.client.Delete(ctx, videoPath(projectID, videoID), nil)
}

// Upload sends the file as multipart parts "video" and "title".
// Failures are refined with upload-specific messages.
func (g *Videos) Upload(ctx context.Context, projectID int64, in UploadInput) (models.Video, error) {
	logger := xlog.WithContext(ctx, g.logger).With().
		Int64(xlog.FieldProjectID, projectID).
		Str("file", in.File.Name()).
		Logger()

	rc, err := in.File.Open()
	if err != nil {
		return models.Video{}, fmt.Errorf("failed to open %s: %w", in.File.Name(), err)
	}
	defer rc.Close()

	resp, err := g.client.Upload(ctx, videosPath(projectID), api.UploadRequest{
		FileField:   "video",
		FileName:    in.File.Name(),
		ContentType: in.File.Type(),
		Content:     rc,
		Fields:      []api.FormField{{Name: "title", Value: in.Title}},
	})
	if err != nil {
		if api.IsSessionExpired(err) {
			uploadsTotal.WithLabelValues("session_expired").Inc()
		} else {
			uploadsTotal.WithLabelValues("failed").Inc()
		}
		logger.Warn().Err(err).Msg("upload failed")
		return models.Video{}, refineUploadError(err, projectID)
	}

	uploadsTotal.WithLabelValues("success").Inc()
	v, err := decodeVideo(resp.Body)
	if err != nil {
		return models.Video{}, err
	}
	logger.Info().Int64(xlog.FieldVideoID, v.ID).Int64("bytes", in.File.Size()).Msg("video uploaded")
	return v, nil
}

// Download hands the video's secure URL to the host download sink under the name
// "{title}.{format}". No request is made here.
func (g *Videos) Download(ctx context.Context, v models.Video) (ports.DownloadLink, error) {
	link := LinkFor(v)
	if g.downloader == nil {
		return link, ErrNoDownloader
	}
	return link, g.downloader.Download(ctx, link)
}

// LinkFor builds the download link of v.
func LinkFor(v models.Video) ports.DownloadLink {
	return ports.DownloadLink{URL: v.SecureURL, Filename: v.Title + "." + v.Format}
}

func refineUploadError(err error, projectID int64) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Status {
	case 0, http.StatusUnauthorized:
		return err
	case http.StatusBadRequest:
		msg := apiErr.FieldErrors.Join()
		if msg == "" {
			msg = apiErr.Remote
		}
		if msg == "" {
			msg = MsgUploadValidation
		}
		return apiErr.WithMessage(msg)
	case http.StatusForbidden:
		return apiErr.WithMessage(orDefault(apiErr.Remote, MsgUploadForbidden))
	case http.StatusNotFound:
		return apiErr.WithMessage(orDefault(apiErr.Remote, fmt.Sprintf("project not found with id: %d", projectID)))
	default:
		return apiErr.WithMessage(orDefault(apiErr.Remote, fmt.Sprintf("upload failed (%d)", apiErr.Status)))
	}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// decodeVideo accepts a bare video or one wrapped in {"data": ...}.
func decodeVideo(raw []byte) (models.Video, error) {
	var v models.Video
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return v, nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return v, fmt.Errorf("failed to decode video: %w", err)
	}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode video: %w", err)
	}
	return v, nil
}

func videosPath(projectID int64) string {
	return fmt.Sprintf("/api/v1/projects/%d/videos", projectID)
}

func videoPath(projectID, videoID int64) string {
	return fmt.Sprintf("%s/%d", videosPath(projectID), videoID)
}
