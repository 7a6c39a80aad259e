package controller

import (
	"context"
	"strings"

	"github.com/jhorman9/elevideo/internal/gateway"
	"github.com/jhorman9/elevideo/internal/models"
)

// ProjectsGateway is what the projects controller needs from the service.
type ProjectsGateway interface {
	List(ctx context.Context, opts gateway.ListOptions) (models.Page[models.Project], error)
	Create(ctx context.Context, in models.ProjectInput) (models.Project, error)
	Update(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectsState is the view state of one page of projects.
type ProjectsState struct {
	Items         []models.ProjectItem
	Page          int
	Loading       bool
	Err           string // "" when there is no error
	TotalPages    int
	TotalElements int64
	IsCreating    bool
	IsUpdating    bool
	IsDeleting    bool
}

func cloneProjects(s ProjectsState) ProjectsState {
	s.Items = append([]models.ProjectItem(nil), s.Items...)
	return s
}

// Projects owns the projects view state.
type Projects struct {
	gw     ProjectsGateway
	cfg    settings
	policy policy
	state  *observable[ProjectsState]
	gen    generation
}

// NewProjects builds the controller and, unless auto-fetch is off, loads the first page.
func NewProjects(ctx context.Context, gw ProjectsGateway, opts ...Option) *Projects {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Projects{
		gw:     gw,
		cfg:    cfg,
		policy: newPolicy(cfg),
		state:  newObservable(ProjectsState{Page: cfg.page}, cloneProjects),
	}
	if cfg.autoFetch {
		_ = c.Fetch(ctx)
	}
	return c
}

// State returns a snapshot of the view state.
func (c *Projects) State() ProjectsState { return c.state.get() }

// Subscribe registers fn for every state change. fn must not block.
func (c *Projects) Subscribe(fn func(ProjectsState)) (cancel func()) {
	return c.state.subscribe(fn)
}

// SetPage moves to page p, fetching it when auto-fetch is on and the page changed.
func (c *Projects) SetPage(ctx context.Context, p int) error {
	if p < 0 {
		p = 0
	}
	changed := false
	c.state.update(func(s *ProjectsState) {
		changed = s.Page != p
		s.Page = p
	})
	if changed && c.cfg.autoFetch {
		return c.Fetch(ctx)
	}
	return nil
}

// Fetch loads the current page, newest first.
func (c *Projects) Fetch(ctx context.Context) error {
	gen := c.gen.begin()
	var page int
	c.state.update(func(s *ProjectsState) {
		s.Loading = true
		s.Err = ""
		page = s.Page
	})

	res, err := c.gw.List(ctx, gateway.ListOptions{
		Page:          page,
		Size:          c.cfg.size,
		SortBy:        gateway.DefaultSortBy,
		SortDirection: gateway.DefaultSortDirection,
	})
	if !c.gen.latest(gen) {
		c.cfg.logger.Debug().Int("page", page).Msg("dropping stale projects response")
		if err != nil {
			c.policy.expiry.Handle(err)
		}
		return err
	}
	if err != nil {
		c.state.update(func(s *ProjectsState) { s.Loading = false })
		c.policy.surface(err, "failed to load projects", func(msg string) {
			c.state.update(func(s *ProjectsState) { s.Err = msg })
		})
		return err
	}

	items := make([]models.ProjectItem, 0, len(res.Content))
	for _, p := range res.Content {
		items = append(items, models.ToItem(p))
	}
	c.state.update(func(s *ProjectsState) {
		s.Items = items
		s.TotalPages = res.TotalPages
		s.TotalElements = res.TotalElements
		s.Loading = false
	})
	return nil
}

// Create adds a project, announces it and reloads the page.
func (c *Projects) Create(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		c.policy.warn(TitleError, ErrEmptyName.Error())
		return models.Project{}, ErrEmptyName
	}

	c.state.update(func(s *ProjectsState) { s.IsCreating = true })
	defer c.state.update(func(s *ProjectsState) { s.IsCreating = false })

	p, err := c.gw.Create(ctx, in)
	if err != nil {
		c.surface(err, "failed to create project")
		return models.Project{}, err
	}
	c.policy.info("project created", name(p.Name, in.Name)+" was created")
	_ = c.Fetch(ctx)
	return p, nil
}

// Update renames or redescribes a project and reloads the page.
func (c *Projects) Update(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		c.policy.warn(TitleError, ErrEmptyName.Error())
		return models.Project{}, ErrEmptyName
	}

	c.state.update(func(s *ProjectsState) { s.IsUpdating = true })
	defer c.state.update(func(s *ProjectsState) { s.IsUpdating = false })

	p, err := c.gw.Update(ctx, id, in)
	if err != nil {
		c.surface(err, "failed to update project")
		return models.Project{}, err
	}
	c.policy.info("project updated", name(p.Name, in.Name)+" was updated")
	_ = c.Fetch(ctx)
	return p, nil
}

// Delete removes a project and reloads the page.
func (c *Projects) Delete(ctx context.Context, id int64) error {
	c.state.update(func(s *ProjectsState) { s.IsDeleting = true })
	defer c.state.update(func(s *ProjectsState) { s.IsDeleting = false })

	if err := c.gw.Delete(ctx, id); err != nil {
		c.surface(err, "failed to delete project")
		return err
	}
	c.policy.info("project deleted", "the project was removed")
	_ = c.Fetch(ctx)
	return nil
}

func (c *Projects) surface(err error, fallback string) {
	c.policy.surface(err, fallback, func(msg string) {
		c.state.update(func(s *ProjectsState) { s.Err = msg })
	})
}

func name(got, asked string) string {
	if got != "" {
		return got
	}
	return asked
}
