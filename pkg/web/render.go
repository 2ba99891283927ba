package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/booklend/booklend/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"books", "book", "loans", "users", "user", "error"}

// renderer renders pages into the shared layout. Each page gets its own
// template set so page-level define blocks don't collide.
type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	templates := map[string]*template.Template{}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, errors.WithStack(err)
		}
		templates[name] = t
	}
	return &renderer{templates: templates}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return errors.Errorf("unknown template %q", name)
	}
	return errors.WithStack(t.ExecuteTemplate(w, "layout.html", data))
}

// page is the base view model every template receives.
type page map[string]interface{}

func newPage(c echo.Context, title string) page {
	s := SessionFromContext(c)
	return page{
		"Title":       title,
		"Session":     s,
		"IsLibrarian": s != nil && s.HasRole(models.RoleLibrarian),
	}
}
