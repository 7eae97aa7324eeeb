package dept

import (
	"strings"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/event"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	PagesVisibleToFunc     = PagesVisibleTo
	HasPageAccessFunc      = HasPageAccess
	SetPagePermissionsFunc = SetPagePermissions
	PermissionMatrixFunc   = PermissionMatrix
)

// PagesVisibleTo computes the pages the user may navigate to: all pages for a
// superuser, only home for a departmentless user, and home plus the granted
// pages of the user's department otherwise. The result follows AllPages order.
func PagesVisibleTo(s *session.Session) ([]Page, error) {
	if s == nil || s.Token == "" {
		return nil, bizerror.ErrUnauthenticated
	}
	if s.Identity.IsSuperuser {
		pages := make([]Page, len(AllPages))
		copy(pages, AllPages)
		return pages, nil
	}

	departmentId, err := account.DepartmentOf(s.Identity.ID, s)
	if err != nil {
		return nil, err
	}
	if departmentId == 0 {
		return []Page{PageHome}, nil
	}

	var rows []PagePermission
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&PagePermission{}).
		Where("department_id = ? AND has_access = ?", departmentId, true).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	granted := map[Page]bool{PageHome: true}
	for _, row := range rows {
		granted[row.Page] = true
	}
	pages := []Page{}
	for _, page := range AllPages {
		if granted[page] {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// HasPageAccess is the gate for page-scoped operations. Absence of a
// permission row means no access.
func HasPageAccess(s *session.Session, page Page) (bool, error) {
	if s == nil || s.Token == "" {
		return false, nil
	}
	if s.Identity.IsSuperuser {
		return true, nil
	}
	if page == PageHome {
		return true, nil
	}

	departmentId, err := account.DepartmentOf(s.Identity.ID, s)
	if err != nil {
		return false, err
	}
	if departmentId == 0 {
		return false, nil
	}

	row := PagePermission{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err = db.Where("page = ? AND department_id = ?", page, departmentId).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return row.HasAccess, nil
}

// SetPagePermissions applies a configuration batch with per-entry upsert
// semantics. Entries naming an unknown page or a missing department are
// skipped, the rest of the batch still applies. Returns the number of
// entries applied.
func SetPagePermissions(u *PermissionUpdating, s *session.Session) (int, error) {
	granted, err := HasPageAccess(s, PageSettings)
	if err != nil {
		return 0, err
	}
	if !granted {
		return 0, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	applied := 0
	var updated []event.UpdatedProperty
	for _, entry := range u.Entries {
		if entry.Page == "" || !entry.Page.Known() || entry.DepartmentID == 0 {
			continue
		}
		department := Department{ID: entry.DepartmentID}
		if err := db.Where(&department).First(&department).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return applied, err
		}
		if err := upsertPermission(db, entry); err != nil {
			return applied, err
		}
		applied++
		value := "false"
		if entry.HasAccess {
			value = "true"
		}
		updated = append(updated, event.UpdatedProperty{
			PropertyName: string(entry.Page) + "@" + department.Name, NewValue: value})
	}

	if applied > 0 {
		if err := event.CreateEvent("page_permissions", 0, "bulk update",
			event.EventCategoryPropertyUpdated, updated, &s.Identity, db); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

// upsertPermission is atomic per (page, department) row: the unique index
// turns a concurrent duplicate insert into an update of the existing row.
func upsertPermission(db *gorm.DB, entry PermissionEntry) error {
	row := PagePermission{}
	err := db.Where("page = ? AND department_id = ?", entry.Page, entry.DepartmentID).First(&row).Error
	if err == nil {
		return db.Model(&row).Update("has_access", entry.HasAccess).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	err = db.Create(&PagePermission{ID: misc.NextId(deptIdWorker), Page: entry.Page,
		DepartmentID: entry.DepartmentID, HasAccess: entry.HasAccess}).Error
	if err != nil && isDuplicateKey(err) {
		// a concurrent writer inserted the row first
		return db.Model(&PagePermission{}).
			Where("page = ? AND department_id = ?", entry.Page, entry.DepartmentID).
			Update("has_access", entry.HasAccess).Error
	}
	return err
}

func isDuplicateKey(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "Error 1062")
}

// PermissionMatrix reports has_access for every page of every existing
// department, defaulting to false where no row is configured.
func PermissionMatrix(s *session.Session) (*PermissionMatrixView, error) {
	granted, err := HasPageAccess(s, PageSettings)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, bizerror.ErrForbidden
	}

	departments, err := QueryDepartments(s)
	if err != nil {
		return nil, err
	}

	var rows []PagePermission
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&PagePermission{}).Scan(&rows).Error; err != nil {
		return nil, err
	}
	configured := map[types.ID]map[Page]bool{}
	for _, row := range rows {
		if configured[row.DepartmentID] == nil {
			configured[row.DepartmentID] = map[Page]bool{}
		}
		configured[row.DepartmentID][row.Page] = row.HasAccess
	}

	view := PermissionMatrixView{Pages: AllPages, Departments: []DepartmentPermissions{}}
	for _, department := range departments {
		pages := map[Page]bool{}
		for _, page := range AllPages {
			pages[page] = configured[department.ID][page]
		}
		view.Departments = append(view.Departments, DepartmentPermissions{Department: department, Pages: pages})
	}
	return &view, nil
}
