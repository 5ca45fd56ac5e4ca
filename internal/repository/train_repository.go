package repository

// Train registry access.  A Train carries a route and owns one row per
// fare class in train_classes.  The booking flow reads class rows under
// FOR UPDATE; that row lock is what serializes concurrent reservations of
// the same class.

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/csfahad/rbms-sub001/internal/model"
)

// TrainRepo manages persistence for trains and their classes.
type TrainRepo struct {
	db *sql.DB
}

// NewTrainRepo returns a new TrainRepo bound to the given database.
func NewTrainRepo(db *sql.DB) *TrainRepo { return &TrainRepo{db: db} }

const upsertClassSQL = `INSERT INTO train_classes (train_id, class_type, total_seats, fare) VALUES (?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE total_seats = VALUES(total_seats), fare = VALUES(fare)`

// CreateWithClasses inserts a train together with t.Classes in one
// transaction and populates the generated ID, timestamp and each class's
// TrainID.  Either the train and every class are stored or nothing is.
func (r *TrainRepo) CreateWithClasses(ctx context.Context, t *model.Train) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO trains (number, name, source, destination) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.Number, t.Name, t.Source, t.Destination)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range t.Classes {
		c := &t.Classes[i]
		c.TrainID = uint64(id)
		if _, err := tx.ExecContext(ctx, upsertClassSQL, c.TrainID, c.ClassType, c.TotalSeats, c.Fare); err != nil {
			return err
		}
	}
	var created time.Time
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM trains WHERE id = ?`, id).Scan(&created); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	t.ID, t.CreatedAt = uint64(id), created
	return nil
}

// UpsertClass creates or replaces the capacity and fare of a class.  It
// takes the same row lock as a booking in flight, so an update waits for
// in-flight reservations of the class and only affects later ones.
func (r *TrainRepo) UpsertClass(ctx context.Context, c model.TrainClass) error {
	_, err := r.db.ExecContext(ctx, upsertClassSQL, c.TrainID, c.ClassType, c.TotalSeats, c.Fare)
	return err
}

// GetByID returns a train with its classes or ErrTrainNotFound.
func (r *TrainRepo) GetByID(ctx context.Context, id uint64) (*model.Train, error) {
	const q = `SELECT id, number, name, source, destination, created_at FROM trains WHERE id = ?`
	var t model.Train
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Number, &t.Name, &t.Source, &t.Destination, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrainNotFound
	}
	if err != nil {
		return nil, err
	}
	classes, err := r.classesFor(ctx, []uint64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Classes = classes[t.ID]
	return &t, nil
}

// List returns all trains ordered by number, each with its classes.
func (r *TrainRepo) List(ctx context.Context) ([]model.Train, error) {
	const q = `SELECT id, number, name, source, destination, created_at FROM trains ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	trains := make([]model.Train, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		var t model.Train
		if err := rows.Scan(&t.ID, &t.Number, &t.Name, &t.Source, &t.Destination, &t.CreatedAt); err != nil {
			return nil, err
		}
		trains = append(trains, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return trains, nil
	}
	classes, err := r.classesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range trains {
		trains[i].Classes = classes[trains[i].ID]
	}
	return trains, nil
}

func (r *TrainRepo) classesFor(ctx context.Context, trainIDs []uint64) (map[uint64][]model.TrainClass, error) {
	args := make([]any, 0, len(trainIDs))
	placeholders := make([]string, 0, len(trainIDs))
	for _, id := range trainIDs {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT train_id, class_type, total_seats, fare FROM train_classes
          WHERE train_id IN (` + strings.Join(placeholders, ",") + `)
          ORDER BY train_id, class_type`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.TrainClass, len(trainIDs))
	for rows.Next() {
		var c model.TrainClass
		if err := rows.Scan(&c.TrainID, &c.ClassType, &c.TotalSeats, &c.Fare); err != nil {
			return nil, err
		}
		out[c.TrainID] = append(out[c.TrainID], c)
	}
	return out, rows.Err()
}

const classRouteQuery = `SELECT tc.train_id, tc.class_type, tc.total_seats, tc.fare, t.source, t.destination
               FROM train_classes tc
               JOIN trains t ON t.id = tc.train_id
               WHERE tc.train_id = ? AND tc.class_type = ?`

// GetClass is the registry lookup: fare, capacity and route for a
// (train, class) pair.  It returns ErrTrainNotFound when the pair does not
// exist.
func (r *TrainRepo) GetClass(ctx context.Context, q DBTX, trainID uint64, classType string) (*model.ClassRoute, error) {
	return scanClassRoute(q.QueryRowContext(ctx, classRouteQuery, trainID, classType))
}

// LockClassTx reads the class row with FOR UPDATE.  The lock is held until
// tx ends and covers every travel date of the class, so availability
// checks, seat lookups and inserts made under it cannot interleave with
// another booking of the same class.
func (r *TrainRepo) LockClassTx(ctx context.Context, tx *sql.Tx, trainID uint64, classType string) (*model.ClassRoute, error) {
	return scanClassRoute(tx.QueryRowContext(ctx, classRouteQuery+` FOR UPDATE OF tc`, trainID, classType))
}

func scanClassRoute(row *sql.Row) (*model.ClassRoute, error) {
	var c model.ClassRoute
	err := row.Scan(&c.TrainID, &c.ClassType, &c.TotalSeats, &c.Fare, &c.Source, &c.Destination)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
