package note

import (
	"buildtrack/bizerror"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

var (
	noteIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryNotesFunc = QueryNotes
	CreateNoteFunc = CreateNote
	UpdateNoteFunc = UpdateNote
	DeleteNoteFunc = DeleteNote
)

func QueryNotes(q NoteQuery, s *session.Session) ([]SheetNote, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&SheetNote{})
	if q.SheetID != 0 {
		query = query.Where("sheet_id = ?", q.SheetID)
	}
	records := []SheetNote{}
	if err := query.Order("create_time DESC, id ASC").Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func CreateNote(c *NoteCreation, s *session.Session) (*SheetNote, error) {
	now := types.CurrentTimestamp()
	record := SheetNote{ID: misc.NextId(noteIdWorker), Name: c.Name, Note: c.Note,
		SheetID: c.SheetID, AuthorID: s.Identity.ID, CreateTime: now, UpdateTime: now}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateNote(id types.ID, u *NoteUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := SheetNote{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return err
	}
	if record.AuthorID != s.Identity.ID && !s.Identity.IsSuperuser {
		return bizerror.ErrForbidden
	}
	return db.Model(&record).Update(map[string]interface{}{
		"name": u.Name, "note": u.Note, "update_time": types.CurrentTimestamp(),
	}).Error
}

func DeleteNote(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := SheetNote{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return err
	}
	if record.AuthorID != s.Identity.ID && !s.Identity.IsSuperuser {
		return bizerror.ErrForbidden
	}
	return db.Delete(SheetNote{}, "id = ?", id).Error
}
