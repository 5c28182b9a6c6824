package navigation

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context carries the per-page navigation data handed to templates: the page
// title, the resolved bar state and the breadcrumb trail.
type Context struct {
	PageTitle   string
	Bar         State
	Breadcrumbs []BreadcrumbItem
}

// NewContext creates a navigation context for a page.
func NewContext(pageTitle string, bar State) *Context {
	return &Context{
		PageTitle:   pageTitle,
		Bar:         bar,
		Breadcrumbs: make([]BreadcrumbItem, 0),
	}
}

// AddBreadcrumb appends a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// IsActive checks whether the entry with the given path is the active one.
func (c *Context) IsActive(path string) bool {
	active := c.Bar.Active()
	return active != nil && active.Path == path
}
