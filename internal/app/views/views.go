// Package views renders the substitution snapshot as an HTML page.
package views

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/yigit/substitutions/internal/app/services"
	"github.com/yigit/substitutions/internal/domain"
)

// IndexTemplate is the name of the list page template
const IndexTemplate = "index.tmpl"

// PageTitle is the heading of the list page
const PageTitle = "课程替代关系"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.tmpl")
}

// Page is the data passed to the index template
type Page struct {
	Title     string
	Status    string
	Message   string
	Empty     bool
	Count     int
	FetchedAt string
	Relations []RelationView
}

// RelationView is one rendered relation
type RelationView struct {
	ID              int64
	Interchangeable bool
	Substitutes     []CourseView
	Originals       []CourseView
}

// CourseView is one course box
type CourseView struct {
	Code    string
	CN      string
	EN      string
	Credits string
	Period  string
}

// NewPage projects a snapshot onto the page model
func NewPage(snap services.Snapshot) Page {
	page := Page{
		Title:     PageTitle,
		Status:    string(snap.Status),
		Message:   snap.Message,
		Empty:     len(snap.Relations) == 0,
		Count:     len(snap.Relations),
		Relations: make([]RelationView, 0, len(snap.Relations)),
	}
	if page.Empty && page.Message == "" {
		page.Message = services.MessageEmpty
	}
	if !snap.FetchedAt.IsZero() {
		page.FetchedAt = snap.FetchedAt.Format(time.DateTime)
	}

	for _, r := range snap.Relations {
		page.Relations = append(page.Relations, RelationView{
			ID:              r.ID(),
			Interchangeable: r.Interchangeable(),
			Substitutes:     courseViews(r.Substitutes()),
			Originals:       courseViews(r.Originals()),
		})
	}
	return page
}

func courseViews(courses []domain.Course) []CourseView {
	out := make([]CourseView, len(courses))
	for i, c := range courses {
		out[i] = CourseView{
			Code:    c.Code,
			CN:      c.CN,
			EN:      c.EN,
			Credits: FormatNumber(c.Credits),
			Period:  FormatNumber(c.Period),
		}
	}
	return out
}

// FormatNumber prints whole numbers without a fraction ("4", "2.5")
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
