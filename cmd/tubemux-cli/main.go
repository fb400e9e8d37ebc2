package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/dispatch"
	"github.com/ytget/tubemux/internal/fetch"
	"github.com/ytget/tubemux/internal/merge"
	"github.com/ytget/tubemux/internal/model"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "tubemux-cli",
		Usage: "download and mux YouTube videos without the GUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.StringFlag{
				Name:  "resolution",
				Usage: "preferred resolution label, e.g. `1080p` (default: highest)",
			},
		},
		Action: func(c *cli.Context) error {
			fetchSvc := fetch.NewService()
			dispatchSvc := dispatch.NewService(fetchSvc, merge.NewService(), 1)
			for _, source := range c.Args().Slice() {
				if err := download(ctx, fetchSvc, dispatchSvc, source, c.String("target"), c.String("resolution")); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err.Error())
	}
}

func download(ctx context.Context, fetchSvc *fetch.Service, dispatchSvc *dispatch.Service, source, target, resolution string) error {
	logger := zap.S()
	logger.Infof("Downloading from %s into %s", source, target)

	info, err := fetchSvc.Fetch(ctx, source)
	if err != nil {
		return err
	}
	logger.Infof("Resolved %q with %d streams", info.Title, len(info.Streams))

	descriptor := pickStream(info, resolution)
	logger.Infof("Selected %s", descriptor.Label())

	bar := progressbar.Default(100, "downloading")
	done := make(chan *model.DownloadTask, 1)
	dispatchSvc.SetUpdateCallback(func(task *model.DownloadTask) {
		bar.Describe(string(task.Status))
		_ = bar.Set(task.Percent)
		if task.URL == source && task.Status.IsFinished() {
			select {
			case done <- task:
			default:
			}
		}
	})

	task, err := dispatchSvc.AddTask(dispatch.Request{
		URL:     source,
		Title:   info.Title,
		Stream:  descriptor,
		Audio:   info.Audio,
		DestDir: target,
	})
	if err != nil {
		return err
	}

	select {
	case finished := <-done:
		_ = bar.Finish()
		if finished.Status == model.TaskStatusError {
			return fmt.Errorf("download failed: %s", finished.LastError)
		}
		logger.Infof("Download complete: %s", finished.OutputPath)
		return nil
	case <-ctx.Done():
		_ = dispatchSvc.StopTask(task.ID)
		return ctx.Err()
	}
}

// pickStream returns the stream matching the requested resolution label, or
// the highest available one when no label is given or nothing matches.
func pickStream(info *fetch.VideoInfo, resolution string) model.StreamDescriptor {
	if resolution != "" {
		for _, sd := range info.Streams {
			if sd.Resolution == resolution {
				return sd
			}
		}
		zap.S().Warnf("No stream with resolution %q, falling back to highest", resolution)
	}
	// Streams are ordered highest first by the fetch service.
	return info.Streams[0]
}
