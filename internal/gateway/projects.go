// Package gateway maps Elevideo resources onto HTTP calls.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/models"
)

// List defaults
const (
	DefaultPageSize      = 20
	DefaultSortBy        = "createdAt"
	DefaultSortDirection = "DESC"
)

// ListOptions selects one page of a sorted list.
type ListOptions struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}

func (o ListOptions) withDefaults() ListOptions {
	if o.Page < 0 {
		o.Page = 0
	}
	if o.Size <= 0 {
		o.Size = DefaultPageSize
	}
	if o.SortBy == "" {
		o.SortBy = DefaultSortBy
	}
	if o.SortDirection == "" {
		o.SortDirection = DefaultSortDirection
	}
	return o
}

// query renders page, size, sortBy and sortDirection in that order.
func (o ListOptions) query() string {
	o = o.withDefaults()
	var b strings.Builder
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(o.Page))
	b.WriteString("&size=")
	b.WriteString(strconv.Itoa(o.Size))
	b.WriteString("&sortBy=")
	b.WriteString(url.QueryEscape(o.SortBy))
	b.WriteString("&sortDirection=")
	b.WriteString(url.QueryEscape(o.SortDirection))
	return b.String()
}

// Projects is the gateway for /projects.
type Projects struct {
	client *api.Client
}

// NewProjects creates the projects gateway
func NewProjects(client *api.Client) *Projects {
	return &Projects{client: client}
}

// List fetches one page of projects.
func (g *Projects) List(ctx context.Context, opts ListOptions) (models.Page[models.Project], error) {
	var page models.Page[models.Project]
	err := g.client.Get(ctx, "/projects?"+opts.query(), &page)
	return page, err
}

// Get fetches one project.
func (g *Projects) Get(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := g.client.Get(ctx, projectPath(id), &p)
	return p, err
}

// Create adds a project.
func (g *Projects) Create(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var p models.Project
	err := g.client.Post(ctx, "/projects", in, &p)
	return p, err
}

// Update replaces name and description of a project.
func (g *Projects) Update(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	var p models.Project
	err := g.client.Put(ctx, projectPath(id), in, &p)
	return p, err
}

// Delete removes a project.
func (g *Projects) Delete(ctx context.Context, id int64) error {
	return g.client.Delete(ctx, projectPath(id), nil)
}

func projectPath(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}
