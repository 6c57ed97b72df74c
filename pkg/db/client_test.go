package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stockRow struct {
	ID     int
	SKU    string
	OnHand int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&stockRow{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTxCommits(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&stockRow{SKU: "KB-0001", OnHand: 12}).Error
	})
	if err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&stockRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	if err := db.Create(&stockRow{SKU: "KB-0002", OnHand: 3}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Model(&stockRow{}).Where("sku = ?", "KB-0002").Update("on_hand", 0).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}

	var row stockRow
	if err := db.Where("sku = ?", "KB-0002").First(&row).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if row.OnHand != 3 {
		t.Fatalf("expected rollback to keep on_hand 3, got %d", row.OnHand)
	}
}

func TestPing(t *testing.T) {
	client := &Client{conn: newTestDB(t)}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
