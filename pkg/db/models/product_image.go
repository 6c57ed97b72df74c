package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductImage stores the binary image content alongside its metadata.
type ProductImage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	FileName    string    `gorm:"column:file_name;not null"`
	FileType    string    `gorm:"column:file_type;not null"`
	Data        []byte    `gorm:"column:data;type:bytea;not null"`
	DownloadURL string    `gorm:"column:download_url;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
