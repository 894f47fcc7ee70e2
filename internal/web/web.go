package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

//go:embed static
var static embed.FS

// Handler serves the browser UI from the embedded static directory
func Handler() fiber.Handler {
	root, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return filesystem.New(filesystem.Config{
		Root:   http.FS(root),
		Index:  "index.html",
		MaxAge: 300,
	})
}
