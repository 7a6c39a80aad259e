package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/controller"
	"github.com/jhorman9/elevideo/internal/models"
	"github.com/jhorman9/elevideo/internal/pagination"
)

var (
	listPage int
	listSize int
	listAll  bool
	listJSON bool

	projectName        string
	projectDescription string
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			pc := a.ProjectsController(ctx, controller.WithAutoFetch(false), controller.WithSize(pageSize()))

			var items []models.ProjectItem
			var total int64
			err := walkPages(ctx, listPage, listAll, pc.SetPage, pc.Fetch, func() int {
				st := pc.State()
				items = append(items, st.Items...)
				total = st.TotalElements
				return st.TotalPages
			})
			if err != nil {
				return err
			}
			return printProjects(cmd.OutOrStdout(), items, total)
		})
	},
}

var projectsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p, err := a.Projects.Get(ctx, id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.ToItem(p))
		})
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			pc := a.ProjectsController(ctx, controller.WithAutoFetch(false))
			p, err := pc.Create(ctx, models.ProjectInput{Name: projectName, Description: projectDescription})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", p.ID)
			return nil
		})
	},
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Rename or redescribe a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			pc := a.ProjectsController(ctx, controller.WithAutoFetch(false))
			_, err := pc.Update(ctx, id, models.ProjectInput{Name: projectName, Description: projectDescription})
			return err
		})
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.ProjectsController(ctx, controller.WithAutoFetch(false)).Delete(ctx, id)
		})
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsGetCmd, projectsCreateCmd, projectsUpdateCmd, projectsDeleteCmd)

	addListFlags(projectsListCmd)
	for _, c := range []*cobra.Command{projectsCreateCmd, projectsUpdateCmd} {
		c.Flags().StringVarP(&projectName, "name", "n", "", "project name")
		c.Flags().StringVarP(&projectDescription, "description", "d", "", "project description")
		_ = c.MarkFlagRequired("name")
	}
}

func addListFlags(c *cobra.Command) {
	c.Flags().IntVar(&listPage, "page", 0, "zero-based page to show")
	c.Flags().IntVar(&listSize, "size", 0, "page size (default from config)")
	c.Flags().BoolVar(&listAll, "all", false, "walk every page from --page on")
	c.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}

func pageSize() int {
	if listSize > 0 {
		return listSize
	}
	return cfg.PageSize
}

// walkPages fetches page start and, with all set, each following page. collect
// reads the controller state after every fetch and returns the total page count.
func walkPages(ctx context.Context, start int, all bool, setPage func(context.Context, int) error,
	fetch func(context.Context) error, collect func() int) error {
	pg := pagination.New(start)
	for {
		if err := setPage(ctx, pg.CurrentPage()); err != nil {
			return err
		}
		if err := fetch(ctx); err != nil {
			return err
		}
		pg.SetTotalPages(collect())
		if !all || !pg.CanGoNext() {
			return nil
		}
		pg.NextPage()
	}
}

func printProjects(out io.Writer, items []models.ProjectItem, total int64) error {
	if listJSON {
		if items == nil {
			items = []models.ProjectItem{}
		}
		return writeJSON(out, items)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tDESCRIPTION")
	for _, p := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Created, p.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d projects\n", len(items), total)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
