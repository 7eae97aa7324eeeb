package sheet

import (
	"io"

	"buildtrack/bizerror"
	"buildtrack/client/s3"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

var (
	UploadSheetFileFunc   = UploadSheetFile
	DownloadSheetFileFunc = DownloadSheetFile
)

func UploadSheetFile(id types.ID, filename string, r io.Reader, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := ProjectSheet{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return err
	}

	key := "project_sheets/" + id.String()
	if err := s3.PutObjectFunc(key, r, s); err != nil {
		return err
	}
	return db.Model(&record).Update(map[string]interface{}{
		"file_key": key, "file_name": filename, "update_time": types.CurrentTimestamp(),
	}).Error
}

func DownloadSheetFile(id types.ID, s *session.Session) ([]byte, string, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	record := ProjectSheet{ID: id}
	if err := db.Where(&record).First(&record).Error; err != nil {
		return nil, "", err
	}
	if record.FileKey == "" {
		return nil, "", bizerror.ErrNotFound
	}

	r, err := s3.GetObjectFunc(record.FileKey, s)
	if err != nil {
		if serErr, ok := err.(oss.ServiceError); ok && serErr.Code == "NoSuchKey" {
			return nil, "", bizerror.ErrNotFound
		}
		return nil, "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	return data, record.FileName, nil
}
