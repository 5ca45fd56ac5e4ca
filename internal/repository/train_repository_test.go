package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/csfahad/rbms-sub001/internal/model"
)

func TestTrainListAttachesClasses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM trains ORDER BY number`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "name", "source", "destination", "created_at"}).
			AddRow(1, "12951", "Rajdhani", "BCT", "NDLS", now).
			AddRow(2, "12002", "Shatabdi", "NDLS", "BPL", now))
	mock.ExpectQuery(`FROM train_classes\s+WHERE train_id IN \(\?,\?\)`).WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"train_id", "class_type", "total_seats", "fare"}).
			AddRow(1, "1A", 18, 450000).
			AddRow(1, "3A", 64, 180000).
			AddRow(2, "CC", 78, 120000))

	trains, err := NewTrainRepo(db).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trains) != 2 || len(trains[0].Classes) != 2 || len(trains[1].Classes) != 1 {
		t.Fatalf("unexpected trains %+v", trains)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetClassNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`FROM train_classes tc\s+JOIN trains t`).WithArgs(3, "2S").
		WillReturnRows(sqlmock.NewRows([]string{"train_id"}))

	_, err = NewTrainRepo(db).GetClass(context.Background(), db, 3, "2S")
	if !errors.Is(err, ErrTrainNotFound) {
		t.Fatalf("expected ErrTrainNotFound, got %v", err)
	}
}

func TestLockClassTxUsesForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE tc.train_id = \? AND tc.class_type = \? FOR UPDATE OF tc`).WithArgs(3, "SL").
		WillReturnRows(sqlmock.NewRows([]string{"train_id", "class_type", "total_seats", "fare", "source", "destination"}).
			AddRow(3, "SL", 72, 45000, "MAS", "SBC"))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	c, err := NewTrainRepo(db).LockClassTx(context.Background(), tx, 3, "SL")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	_ = tx.Commit()
	if c.TotalSeats != 72 || c.Fare != 45000 || c.Source != "MAS" {
		t.Fatalf("unexpected class %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func newTrainWithClasses() *model.Train {
	return &model.Train{Number: "12951", Name: "Rajdhani", Source: "BCT", Destination: "NDLS",
		Classes: []model.TrainClass{
			{ClassType: "1A", TotalSeats: 18, Fare: 450000},
			{ClassType: "3A", TotalSeats: 64, Fare: 180000},
		}}
}

func TestCreateWithClassesCommitsTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO trains`).WithArgs("12951", "Rajdhani", "BCT", "NDLS").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(`INSERT INTO train_classes`).WithArgs(4, "1A", 18, 450000).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO train_classes`).WithArgs(4, "3A", 64, 180000).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT created_at FROM trains WHERE id = \?`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	tr := newTrainWithClasses()
	if err := NewTrainRepo(db).CreateWithClasses(context.Background(), tr); err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.ID != 4 || tr.Classes[1].TrainID != 4 {
		t.Fatalf("ids not populated: %+v", tr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateWithClassesRollsBackOnClassFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO trains`).WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(`INSERT INTO train_classes`).WithArgs(4, "1A", 18, 450000).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO train_classes`).WithArgs(4, "3A", 64, 180000).WillReturnError(boom)
	mock.ExpectRollback()

	tr := newTrainWithClasses()
	if err := NewTrainRepo(db).CreateWithClasses(context.Background(), tr); !errors.Is(err, boom) {
		t.Fatalf("expected class insert error, got %v", err)
	}
	if tr.ID != 0 {
		t.Fatalf("train id set after rollback: %d", tr.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
