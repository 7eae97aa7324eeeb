package dept

// Page names a navigable application page. The set of pages is closed and
// versioned with the application; permission rows may only reference members
// of this set.
type Page string

const (
	PageHome              Page = "home"
	PageTasks             Page = "tasks"
	PageProjects          Page = "projects"
	PageSettings          Page = "settings"
	PageUsersList         Page = "users_list"
	PageDepartmentsList   Page = "departments_list"
	PageConstructionSites Page = "project_id"
	PageStatusesList      Page = "statuses_list"
)

var AllPages = []Page{
	PageHome,
	PageTasks,
	PageProjects,
	PageSettings,
	PageUsersList,
	PageDepartmentsList,
	PageConstructionSites,
	PageStatusesList,
}

func (p Page) Known() bool {
	for _, known := range AllPages {
		if p == known {
			return true
		}
	}
	return false
}
