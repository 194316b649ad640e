package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
)

const (
	recordsTable = "records"

	colID        = "id"
	colUserID    = "user_id"
	colKind      = "kind"
	colEntryDate = "entry_date"
	colEmissions = "emissions_kg_co2e"
	colPayload   = "payload"
	colCreatedAt = "created_at"
)

// RecordRepository is the append-only per-user footprint store.
type RecordRepository interface {
	Append(ctx context.Context, rec *entity.Record) error
	// List returns a user's records oldest first; an empty kind lists every kind.
	List(ctx context.Context, userID string, kind constants.DocumentKind) ([]*entity.Record, error)
}

type recordRepository struct {
	db  *DB
	now func() time.Time
	log *slog.Logger
}

func NewRecordRepository(db *DB, logger *slog.Logger) RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{db: db, now: time.Now, log: logger}
}

// Append fills ID, EntryDate and CreatedAt when unset and inserts the record.
func (r *recordRepository) Append(ctx context.Context, rec *entity.Record) error {
	if r.db == nil {
		return errNoDB
	}
	if err := validateRecord(rec); err != nil {
		return err
	}
	now := r.now().UTC()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.EntryDate == "" {
		rec.EntryDate = now.Format("2006-01-02")
	}

	payload, err := json.Marshal(recordPayload{Receipt: rec.Receipt, Energy: rec.Energy, Ride: rec.Ride})
	if err != nil {
		return fmt.Errorf("encode record payload: %w", err)
	}

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(recordsTable).
		Columns(colID, colUserID, colKind, colEntryDate, colEmissions, colPayload, colCreatedAt).
		Values(rec.ID.String(), rec.UserID, string(rec.Kind), rec.EntryDate, nullFloat(rec.EmissionsKgCO2e),
			string(payload), rec.CreatedAt.UnixMicro()).
		Query()
	if _, err := r.db.drv.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("record append failed", "user_id", rec.UserID, "kind", rec.Kind, "error", err)
		return common.NewAppError("DATABASE_ERROR", "failed to append record", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	r.log.Info("record appended", "record_id", rec.ID, "user_id", rec.UserID, "kind", rec.Kind)
	return nil
}

func (r *recordRepository) List(ctx context.Context, userID string, kind constants.DocumentKind) ([]*entity.Record, error) {
	if r.db == nil {
		return nil, errNoDB
	}
	if err := common.NewValidator().Field("user_id", userID, common.Required).Error(); err != nil {
		return nil, err
	}

	preds := []*entsql.Predicate{entsql.EQ(colUserID, userID)}
	if kind != "" {
		preds = append(preds, entsql.EQ(colKind, string(kind)))
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Select(colID, colUserID, colKind, colEntryDate, colEmissions, colPayload, colCreatedAt).
		From(entsql.Table(recordsTable)).
		Where(entsql.And(preds...)).
		OrderBy(colCreatedAt, colID).
		Query()

	rows, err := r.db.drv.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list records", "user_id", userID, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "failed to list records", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type recordPayload struct {
	Receipt *entity.ReceiptEntry `json:"receipt,omitempty"`
	Energy  *entity.EnergyEntry  `json:"energy,omitempty"`
	Ride    *entity.RideEntry    `json:"ride,omitempty"`
}

func scanRecord(rows *stdsql.Rows) (*entity.Record, error) {
	var (
		id, userID, kind, entryDate, payload string
		emissions                            stdsql.NullFloat64
		createdAt                            int64
	)
	if err := rows.Scan(&id, &userID, &kind, &entryDate, &emissions, &payload, &createdAt); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("record id %q: %w", id, err)
	}
	var p recordPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("record %s payload: %w", id, err)
	}
	rec := &entity.Record{
		ID:        rid,
		UserID:    userID,
		Kind:      constants.DocumentKind(kind),
		EntryDate: entryDate,
		Receipt:   p.Receipt,
		Energy:    p.Energy,
		Ride:      p.Ride,
		CreatedAt: time.UnixMicro(createdAt).UTC(),
	}
	if emissions.Valid {
		v := emissions.Float64
		rec.EmissionsKgCO2e = &v
	}
	return rec, nil
}

func validateRecord(rec *entity.Record) error {
	if rec == nil {
		return common.ValidationErrorf("record is required")
	}
	v := common.NewValidator().
		Field("user_id", rec.UserID, common.Required).
		Field("kind", string(rec.Kind), common.Required, common.OneOf(constants.Kinds()...))
	if err := v.Error(); err != nil {
		return err
	}
	var set int
	for _, ok := range []bool{rec.Receipt != nil, rec.Energy != nil, rec.Ride != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return common.ValidationErrorf("record must carry exactly one payload, got %d", set)
	}
	switch {
	case rec.Kind == constants.KindReceipt && rec.Receipt == nil,
		rec.Kind == constants.KindEnergy && rec.Energy == nil,
		rec.Kind == constants.KindTransport && rec.Ride == nil:
		return common.ValidationErrorf("record payload does not match kind %q", rec.Kind)
	}
	return nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
