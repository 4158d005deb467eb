package cmd

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/docscan/internal/app"
	"github.com/emrgen/docscan/internal/capture"
	"github.com/emrgen/docscan/internal/config"
	"github.com/emrgen/docscan/internal/report"
)

func init() {
	rootCmd.AddCommand(importDocCmd())
}

// importDocCmd runs the scan pipeline in process, without a server.
func importDocCmd() *cobra.Command {
	var name string
	var settle time.Duration

	command := &cobra.Command{
		Use:     "import <image>...",
		Short:   "scan images into a new document without a server",
		Long:    `waits until the image files stop changing, then scans them against the local database`,
		Example: "docscan import -n <name> --settle 2s page1.jpg page2.jpg",
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if settle > 0 {
				logrus.Infof("waiting for %d files to settle", len(args))
				if err := capture.WaitUntilStable(ctx, filesUnchanged(args), settle/4, settle); err != nil {
					logrus.Error(err)
					return
				}
			}

			frames, err := capture.Drain(ctx, capture.NewFileSource(args...))
			if err != nil {
				logrus.Errorf("error reading pages: %v", err)
				return
			}

			a, err := app.New(config.LoadConfig())
			if err != nil {
				logrus.Errorf("error building app: %v", err)
				return
			}
			defer a.Close()

			res := a.Scanner.Scan(ctx, name, frames)
			switch res.Status() {
			case report.StatusSucceeded:
				color.Green("%s: %d/%d", res.Status(), res.Succeeded, res.Total)
			case report.StatusPartial:
				color.Yellow("%s: %d/%d", res.Status(), res.Succeeded, res.Total)
			default:
				color.Red("%s: %d/%d", res.Status(), res.Succeeded, res.Total)
			}
			for _, msg := range res.Messages() {
				color.Red("  %s", msg)
			}
			if res.Document != nil {
				logrus.Infof("document created with id: %s", res.Document.ID)
			}
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "name of the document")
	command.Flags().DurationVar(&settle, "settle", 0, "wait until the files are unchanged for this long")

	return command
}

// filesUnchanged reports true when no file changed size or mtime since the
// previous call.
func filesUnchanged(paths []string) func() bool {
	last := make(map[string]os.FileInfo, len(paths))
	return func() bool {
		unchanged := true
		for _, path := range paths {
			info, err := os.Stat(path)
			if err != nil {
				delete(last, path)
				unchanged = false
				continue
			}
			prev, ok := last[path]
			if !ok || prev.Size() != info.Size() || !prev.ModTime().Equal(info.ModTime()) {
				unchanged = false
			}
			last[path] = info
		}
		return unchanged
	}
}
