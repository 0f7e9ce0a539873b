package assets

// AssetLoader defines the contract for loading the resume page's assets.
// Implementations may load from embedded assets, the filesystem, etc.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML page template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)

	// LoadContent loads Markdown resume content by name (without .md extension).
	// Returns ErrContentNotFound if the content doesn't exist.
	LoadContent(name string) (string, error)
}

// Built-in asset names.
const (
	DefaultStyleName    = "resume"
	DefaultTemplateName = "page"
	DefaultContentName  = "resume"
)

// kind maps an asset category to its directory, extension and not-found error.
type kind struct {
	dir      string
	ext      string
	notFound error
}

var (
	kindStyle    = kind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	kindTemplate = kind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
	kindContent  = kind{dir: "content", ext: ".md", notFound: ErrContentNotFound}
)
