package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/app"
	"github.com/jhorman9/elevideo/internal/controller"
	"github.com/jhorman9/elevideo/internal/media"
	"github.com/jhorman9/elevideo/internal/models"
)

var (
	videoProject int64
	downloadDir  string
)

var videosCmd = &cobra.Command{
	Use:     "videos",
	Aliases: []string{"video"},
	Short:   "Manage the videos of a project",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if videoProject <= 0 {
			return controller.ErrNoProject
		}
		return nil
	},
}

var videosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's videos, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			vc := a.VideosController(ctx, videoProject, controller.WithAutoFetch(false), controller.WithSize(pageSize()))

			var items []models.Video
			var total int64
			err := walkPages(ctx, listPage, listAll, vc.SetPage, vc.Fetch, func() int {
				st := vc.State()
				items = append(items, st.Items...)
				total = st.TotalElements
				return st.TotalPages
			})
			if err != nil {
				return err
			}
			return printVideos(cmd.OutOrStdout(), items, total)
		})
	},
}

var videosGetCmd = &cobra.Command{
	Use:   "get VIDEO_ID",
	Short: "Show one video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			v, err := a.Videos.Get(ctx, videoProject, id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		})
	},
}

var videosUploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload video files one after the other",
	Long: `Uploads each file as a video titled after its file name without the extension.
Files over 200MB or not in mp4, mov, avi, webm or mkv format are rejected before
anything is sent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]media.File, 0, len(args))
		for _, path := range args {
			f, err := media.OpenLocal(path)
			if err != nil {
				return err
			}
			files = append(files, f)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			vc := a.VideosController(ctx, videoProject, controller.WithAutoFetch(false))
			uploaded, err := vc.UploadMany(ctx, files)
			for _, v := range uploaded {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", v.ID, v.Title, v.Status)
			}
			return err
		})
	},
}

var videosRenameCmd = &cobra.Command{
	Use:   "rename VIDEO_ID TITLE",
	Short: "Change a video's title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			_, err := a.VideosController(ctx, videoProject, controller.WithAutoFetch(false)).Rename(ctx, id, args[1])
			return err
		})
	},
}

var videosDeleteCmd = &cobra.Command{
	Use:   "delete VIDEO_ID",
	Short: "Delete a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.VideosController(ctx, videoProject, controller.WithAutoFetch(false)).DeleteOne(ctx, id)
		})
	},
}

var videosDownloadCmd = &cobra.Command{
	Use:   "download VIDEO_ID",
	Short: "Save an uploaded video as TITLE.FORMAT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		dl := &fileDownloader{dir: downloadDir, client: api.NewHTTPClient(), out: cmd.OutOrStdout()}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			v, err := a.Videos.Get(ctx, videoProject, id)
			if err != nil {
				return err
			}
			return a.VideosController(ctx, videoProject, controller.WithAutoFetch(false)).Download(ctx, v)
		}, app.WithDownloader(dl))
	},
}

func init() {
	rootCmd.AddCommand(videosCmd)
	videosCmd.AddCommand(videosListCmd, videosGetCmd, videosUploadCmd, videosRenameCmd, videosDeleteCmd, videosDownloadCmd)

	videosCmd.PersistentFlags().Int64VarP(&videoProject, "project", "p", 0, "project id")
	addListFlags(videosListCmd)
	videosDownloadCmd.Flags().StringVarP(&downloadDir, "output", "o", ".", "directory to save into")
}

func printVideos(out io.Writer, items []models.Video, total int64) error {
	if listJSON {
		if items == nil {
			items = []models.Video{}
		}
		return writeJSON(out, items)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFORMAT\tSTATUS\tDURATION\tSIZE")
	for _, v := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.Title, v.Format, v.Status,
			(time.Duration(v.DurationInMillis) * time.Millisecond).Round(time.Second), humanBytes(v.SizeInBytes))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d videos\n", len(items), total)
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
