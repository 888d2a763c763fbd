package main

import (
	"embed"
	"flag"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	blocknotesApp "blocknotes/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	serveMCP := flag.Bool("mcp", false, "run as a stdio MCP server without a window")
	flag.Parse()
	if *serveMCP {
		blocknotesApp.ServeMCP()
		return
	}

	app := blocknotesApp.New()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err := wails.Run(&options.App{
		Title:     "Blocknotes",
		Width:     1200,
		Height:    860,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 25, G: 25, B: 25, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
			},
			About: &mac.AboutInfo{
				Title:   "Blocknotes",
				Message: "Block editor for your knowledge base",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
