package main

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/config"
	"github.com/ytget/tubemux/internal/dispatch"
	"github.com/ytget/tubemux/internal/fetch"
	"github.com/ytget/tubemux/internal/merge"
	"github.com/ytget/tubemux/internal/platform"
	"github.com/ytget/tubemux/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.tubemux"
	AppName = "TubeMux"

	WindowWidth  = 800
	WindowHeight = 600
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	zap.S().Infof("%s v%s starting...", AppName, version)

	// Create new Fyne app
	myApp := app.NewWithID(AppID)

	// Apply compact theme
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	windowTitle := fmt.Sprintf("%s v%s", AppName, version)
	myWindow := myApp.NewWindow(windowTitle)
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	// Initialize services
	settings := config.NewSettings(myApp)
	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		zap.S().Warnf("Failed to ensure downloads dir: %v", err)
	}

	fetchSvc := fetch.NewService()
	mergeSvc := merge.NewService()
	dispatchSvc := dispatch.NewService(fetchSvc, mergeSvc, settings.GetMaxParallelDownloads())

	// Create and setup UI
	ui.NewRootUI(myWindow, myApp, fetchSvc, dispatchSvc, mergeSvc)

	// Show and run
	myWindow.ShowAndRun()
}
