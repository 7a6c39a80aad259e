package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/gateway"
	xlog "github.com/jhorman9/elevideo/internal/log"
	"github.com/jhorman9/elevideo/internal/media"
	"github.com/jhorman9/elevideo/internal/models"
	"github.com/jhorman9/elevideo/internal/ports"
)

// VideosGateway is what the videos controller needs from the service.
type VideosGateway interface {
	List(ctx context.Context, opts gateway.VideoListOptions) (gateway.VideoPage, error)
	Upload(ctx context.Context, projectID int64, in gateway.UploadInput) (models.Video, error)
	Update(ctx context.Context, projectID, videoID int64, in models.VideoInput) (models.Video, error)
	Delete(ctx context.Context, projectID, videoID int64) error
	Download(ctx context.Context, v models.Video) (ports.DownloadLink, error)
}

// VideosState is the view state of one page of a project's videos.
type VideosState struct {
	ProjectID     int64 // 0 when no project is selected
	Items         []models.Video
	Page          int
	Loading       bool
	Err           string
	TotalPages    int
	TotalElements int64
	IsUploading   bool
	IsDeleting    bool
	IsUpdating    bool
}

func cloneVideos(s VideosState) VideosState {
	s.Items = append([]models.Video(nil), s.Items...)
	return s
}

// Videos owns the videos view state of the selected project.
type Videos struct {
	gw     VideosGateway
	cfg    settings
	policy policy
	state  *observable[VideosState]
	gen    generation
}

// NewVideos builds the controller for projectID (0 for none). With auto-fetch on and a
// project selected the first page is loaded before returning.
func NewVideos(ctx context.Context, gw VideosGateway, projectID int64, opts ...Option) *Videos {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Videos{
		gw:     gw,
		cfg:    cfg,
		policy: newPolicy(cfg),
		state:  newObservable(VideosState{ProjectID: projectID, Page: cfg.page}, cloneVideos),
	}
	if cfg.autoFetch && projectID != 0 {
		_ = c.Fetch(ctx)
	}
	return c
}

// State returns a snapshot of the view state.
func (c *Videos) State() VideosState { return c.state.get() }

// Subscribe registers fn for every state change. fn must not block.
func (c *Videos) Subscribe(fn func(VideosState)) (cancel func()) {
	return c.state.subscribe(fn)
}

// SetProject selects another project and resets to the first page.
func (c *Videos) SetProject(ctx context.Context, projectID int64) error {
	changed := false
	c.state.update(func(s *VideosState) {
		changed = s.ProjectID != projectID
		if changed {
			s.ProjectID = projectID
			s.Page = 0
			s.Items = nil
			s.TotalPages = 0
			s.TotalElements = 0
		}
	})
	if changed && c.cfg.autoFetch && projectID != 0 {
		return c.Fetch(ctx)
	}
	return nil
}

// SetPage moves to page p, fetching it when auto-fetch is on and the page changed.
func (c *Videos) SetPage(ctx context.Context, p int) error {
	if p < 0 {
		p = 0
	}
	changed := false
	var pid int64
	c.state.update(func(s *VideosState) {
		changed = s.Page != p
		s.Page = p
		pid = s.ProjectID
	})
	if changed && c.cfg.autoFetch && pid != 0 {
		return c.Fetch(ctx)
	}
	return nil
}

// Fetch loads the current page of the selected project.
func (c *Videos) Fetch(ctx context.Context) error {
	gen := c.gen.begin()
	var (
		page int
		pid  int64
	)
	c.state.update(func(s *VideosState) {
		page, pid = s.Page, s.ProjectID
		if pid == 0 {
			s.Err = ErrNoProject.Error()
			return
		}
		s.Loading = true
		s.Err = ""
	})
	if pid == 0 {
		return ErrNoProject
	}

	res, err := c.gw.List(ctx, gateway.VideoListOptions{
		ProjectID: pid,
		ListOptions: gateway.ListOptions{
			Page:          page,
			Size:          c.cfg.size,
			SortBy:        gateway.DefaultSortBy,
			SortDirection: gateway.DefaultSortDirection,
		},
	})
	if !c.gen.latest(gen) {
		c.cfg.logger.Debug().Int64(xlog.FieldProjectID, pid).Int("page", page).Msg("dropping stale videos response")
		if err != nil {
			c.policy.expiry.Handle(err)
		}
		return err
	}
	if err != nil {
		c.state.update(func(s *VideosState) { s.Loading = false })
		c.surface(err, "failed to load videos")
		return err
	}

	c.state.update(func(s *VideosState) {
		s.Items = res.Data.Content
		s.TotalPages = res.Data.TotalPages
		s.TotalElements = res.Data.TotalElements
		s.Loading = false
	})
	return nil
}

// UploadOne checks f locally and, if it passes, uploads it titled after its file name.
// IsUploading stays set until the refetch has finished.
func (c *Videos) UploadOne(ctx context.Context, f media.File) (models.Video, error) {
	pid, err := c.preflight(f)
	if err != nil {
		return models.Video{}, err
	}

	c.state.update(func(s *VideosState) { s.IsUploading = true })
	defer c.state.update(func(s *VideosState) { s.IsUploading = false })

	v, err := c.send(ctx, pid, f)
	if err != nil {
		return v, err
	}
	_ = c.Fetch(ctx)
	return v, nil
}

// UploadMany uploads files one after the other and refetches once at the end.
// An expired session stops the batch. IsUploading covers the whole batch and the refetch.
func (c *Videos) UploadMany(ctx context.Context, files []media.File) ([]models.Video, error) {
	var (
		uploaded []models.Video
		errs     []error
	)
	c.state.update(func(s *VideosState) { s.IsUploading = true })
	defer c.state.update(func(s *VideosState) { s.IsUploading = false })

	for _, f := range files {
		pid, err := c.preflight(f)
		if err == nil {
			var v models.Video
			if v, err = c.send(ctx, pid, f); err == nil {
				uploaded = append(uploaded, v)
				continue
			}
		}
		errs = append(errs, err)
		if api.IsSessionExpired(err) || errors.Is(err, ErrNoProject) || ctx.Err() != nil {
			break
		}
	}
	if len(uploaded) > 0 {
		_ = c.Fetch(ctx)
	}
	return uploaded, errors.Join(errs...)
}

// preflight rejects an upload before any request: no project, or a file that fails validation.
func (c *Videos) preflight(f media.File) (int64, error) {
	pid := c.State().ProjectID
	if pid == 0 {
		c.policy.warn(TitleError, "must select a project")
		return 0, ErrNoProject
	}
	if err := media.Validate(f); err != nil {
		c.policy.warn("invalid file", err.Error())
		return 0, err
	}
	return pid, nil
}

func (c *Videos) send(ctx context.Context, pid int64, f media.File) (models.Video, error) {
	title := media.TitleFromName(f.Name())
	v, err := c.gw.Upload(ctx, pid, gateway.UploadInput{File: f, Title: title})
	if err != nil {
		c.surface(err, gateway.MsgUploadValidation)
		return models.Video{}, err
	}
	c.policy.info("video uploaded", title+" was uploaded")
	return v, nil
}

// DeleteOne removes a video of the selected project and reloads the page.
func (c *Videos) DeleteOne(ctx context.Context, videoID int64) error {
	pid := c.State().ProjectID
	if pid == 0 {
		c.policy.warn(TitleError, "must select a project")
		return ErrNoProject
	}

	c.state.update(func(s *VideosState) { s.IsDeleting = true })
	defer c.state.update(func(s *VideosState) { s.IsDeleting = false })

	if err := c.gw.Delete(ctx, pid, videoID); err != nil {
		c.surface(err, "failed to delete video")
		return err
	}
	c.policy.info("video deleted", "the video was removed")
	_ = c.Fetch(ctx)
	return nil
}

// Rename changes a video's title and reloads the page.
func (c *Videos) Rename(ctx context.Context, videoID int64, title string) (models.Video, error) {
	pid := c.State().ProjectID
	if pid == 0 {
		c.policy.warn(TitleError, "must select a project")
		return models.Video{}, ErrNoProject
	}
	title = strings.TrimSpace(title)
	if title == "" {
		c.policy.warn(TitleError, ErrEmptyTitle.Error())
		return models.Video{}, ErrEmptyTitle
	}

	c.state.update(func(s *VideosState) { s.IsUpdating = true })
	defer c.state.update(func(s *VideosState) { s.IsUpdating = false })

	v, err := c.gw.Update(ctx, pid, videoID, models.VideoInput{Title: title})
	if err != nil {
		c.surface(err, "failed to update video")
		return models.Video{}, err
	}
	c.policy.info("video updated", title)
	_ = c.Fetch(ctx)
	return v, nil
}

// Download hands an uploaded video to the download sink. Videos still processing
// or in error are refused.
func (c *Videos) Download(ctx context.Context, v models.Video) error {
	if !v.Downloadable() {
		c.policy.warn(TitleError, v.Title+" is not ready for download")
		return ErrNotDownloadable
	}
	if _, err := c.gw.Download(ctx, v); err != nil {
		c.surface(err, "failed to download video")
		return err
	}
	c.policy.info("download started", v.Title)
	return nil
}

func (c *Videos) surface(err error, fallback string) {
	c.policy.surface(err, fallback, func(msg string) {
		c.state.update(func(s *VideosState) { s.Err = msg })
	})
}
