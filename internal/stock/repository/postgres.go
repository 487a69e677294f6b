package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/stock"
	"github.com/bengkelos/inventory-service/internal/stock/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const insertMovementQuery = `
    INSERT INTO stock_movements (
        id, code, part_id, movement_type, quantity_change,
        quantity_before, quantity_after, breakdown,
        reference_type, reference_id, notes, created_by, created_at
    )
    VALUES (
        :id, :code, :part_id, :movement_type, :quantity_change,
        :quantity_before, :quantity_after, :breakdown,
        :reference_type, :reference_id, :notes, :created_by, :created_at
    )
`

// mapPGError translates serialization and deadlock SQLSTATEs into
// stock.ErrTransientConflict so the usecase can retry.
func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", stock.ErrTransientConflict, pgErr.Code)
		}
	}
	return err
}

// lockPart takes the per-part row lock that serializes all stock writers for
// one part. Cross-part writers proceed in parallel.
func lockPart(ctx context.Context, tx *sqlx.Tx, partID string) error {
	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM parts WHERE id = $1 FOR UPDATE`, partID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: part %s", stock.ErrNotFound, partID)
	}
	return err
}

func lotsForPart(ctx context.Context, q sqlx.QueryerContext, partID string) ([]model.Lot, error) {
	var lots []model.Lot
	query := `SELECT * FROM lots WHERE part_id = $1 ORDER BY created_at ASC, id ASC`
	err := sqlx.SelectContext(ctx, q, &lots, query, partID)
	return lots, err
}

func (r *PGRepository) ListLots(ctx context.Context, partID string) ([]model.Lot, error) {
	var exists bool
	if err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM parts WHERE id = $1)`, partID); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: part %s", stock.ErrNotFound, partID)
	}

	lots, err := lotsForPart(ctx, r.DB, partID)
	if err != nil {
		return nil, err
	}
	if lots == nil {
		lots = []model.Lot{}
	}
	return lots, nil
}

func (r *PGRepository) ConsumeFIFO(ctx context.Context, partID string, qty int64, mv *model.StockMovement) (*model.Allocation, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockPart(ctx, tx, partID); err != nil {
		return nil, mapPGError(err)
	}

	lots, err := lotsForPart(ctx, tx, partID)
	if err != nil {
		return nil, mapPGError(err)
	}

	entries, err := stock.PlanFIFO(lots, qty)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if err := decrementLot(ctx, tx, e.LotID, e.UseQty); err != nil {
			return nil, mapPGError(err)
		}
	}

	before := stock.TotalRemaining(lots)
	mv.PartID = partID
	mv.QuantityChange = -qty
	mv.QuantityBefore = before
	mv.QuantityAfter = before - qty
	mv.Breakdown = entries

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return nil, mapPGError(fmt.Errorf("failed to log movement: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapPGError(err)
	}
	return &model.Allocation{PartID: partID, Entries: entries}, nil
}

func (r *PGRepository) ReturnAllocation(ctx context.Context, partID string, entries []model.AllocationEntry, mv *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockPart(ctx, tx, partID); err != nil {
		return mapPGError(err)
	}

	lots, err := lotsForPart(ctx, tx, partID)
	if err != nil {
		return mapPGError(err)
	}

	if err := stock.ValidateReversal(lots, entries); err != nil {
		return err
	}

	var total int64
	for _, e := range entries {
		if err := incrementLot(ctx, tx, e.LotID, e.UseQty); err != nil {
			return mapPGError(err)
		}
		total += e.UseQty
	}

	before := stock.TotalRemaining(lots)
	mv.PartID = partID
	mv.QuantityChange = total
	mv.QuantityBefore = before
	mv.QuantityAfter = before + total
	mv.Breakdown = entries

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return mapPGError(fmt.Errorf("failed to log movement: %w", err))
	}

	return mapPGError(tx.Commit())
}

func (r *PGRepository) Adjust(ctx context.Context, partID string, diffQty int64, mv *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockPart(ctx, tx, partID); err != nil {
		return mapPGError(err)
	}

	lots, err := lotsForPart(ctx, tx, partID)
	if err != nil {
		return mapPGError(err)
	}
	before := stock.TotalRemaining(lots)

	if diffQty > 0 {
		// Positive corrections land on the part's synthetic zero-cost
		// adjustment lot so real purchase lots keep their cost basis.
		lotID, err := adjustmentLotID(ctx, tx, partID)
		if err != nil {
			return mapPGError(err)
		}
		query := `
            UPDATE lots
            SET purchased_qty = purchased_qty + $2, qty_remaining = qty_remaining + $2, updated_at = $3
            WHERE id = $1
        `
		if _, err := tx.ExecContext(ctx, query, lotID, diffQty, time.Now()); err != nil {
			return mapPGError(err)
		}
		mv.Breakdown = model.AllocationEntries{{LotID: lotID, UseQty: diffQty, UnitCost: decimal.Zero}}
	} else {
		entries, err := stock.PlanFIFO(lots, -diffQty)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := decrementLot(ctx, tx, e.LotID, e.UseQty); err != nil {
				return mapPGError(err)
			}
		}
		mv.Breakdown = entries
	}

	mv.PartID = partID
	mv.QuantityChange = diffQty
	mv.QuantityBefore = before
	mv.QuantityAfter = before + diffQty

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return mapPGError(fmt.Errorf("failed to log movement: %w", err))
	}

	return mapPGError(tx.Commit())
}

func (r *PGRepository) InsertLot(ctx context.Context, lot *model.Lot, mv *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockPart(ctx, tx, lot.PartID); err != nil {
		return mapPGError(err)
	}

	lots, err := lotsForPart(ctx, tx, lot.PartID)
	if err != nil {
		return mapPGError(err)
	}
	before := stock.TotalRemaining(lots)

	insertQuery := `
        INSERT INTO lots (
            id, part_id, purchased_qty, qty_remaining, purchase_price,
            is_adjustment, note, created_at, updated_at
        )
        VALUES (
            :id, :part_id, :purchased_qty, :qty_remaining, :purchase_price,
            :is_adjustment, :note, :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, insertQuery, lot); err != nil {
		return mapPGError(fmt.Errorf("failed to insert lot: %w", err))
	}

	mv.PartID = lot.PartID
	mv.QuantityChange = lot.PurchasedQty
	mv.QuantityBefore = before
	mv.QuantityAfter = before + lot.PurchasedQty
	mv.Breakdown = model.AllocationEntries{{LotID: lot.ID, UseQty: lot.PurchasedQty, UnitCost: lot.PurchasePrice}}

	if _, err := tx.NamedExecContext(ctx, insertMovementQuery, mv); err != nil {
		return mapPGError(fmt.Errorf("failed to log movement: %w", err))
	}

	return mapPGError(tx.Commit())
}

func (r *PGRepository) Summary(ctx context.Context, partID string) (*model.PartSummary, error) {
	var minStock int64
	err := r.DB.GetContext(ctx, &minStock, `SELECT min_stock FROM parts WHERE id = $1`, partID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: part %s", stock.ErrNotFound, partID)
	}
	if err != nil {
		return nil, err
	}

	lots, err := lotsForPart(ctx, r.DB, partID)
	if err != nil {
		return nil, err
	}

	return stock.BuildSummary(partID, minStock, lots), nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.PartID != "" {
		conditions = append(conditions, "part_id = :part_id")
		args["part_id"] = f.PartID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	// Creation order per part, so the ledger reads back as an audit replay.
	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at ASC, id ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

// decrementLot guards qty_remaining >= qty in the WHERE clause; zero rows
// affected means the allocator's bookkeeping and the stored state disagree.
func decrementLot(ctx context.Context, tx *sqlx.Tx, lotID string, qty int64) error {
	query := `
        UPDATE lots SET qty_remaining = qty_remaining - $2, updated_at = $3
        WHERE id = $1 AND qty_remaining >= $2
    `
	res, err := tx.ExecContext(ctx, query, lotID, qty, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: lot %s cannot cover %d", stock.ErrInsufficientLotStock, lotID, qty)
	}
	return nil
}

func incrementLot(ctx context.Context, tx *sqlx.Tx, lotID string, qty int64) error {
	query := `
        UPDATE lots SET qty_remaining = qty_remaining + $2, updated_at = $3
        WHERE id = $1 AND qty_remaining + $2 <= purchased_qty
    `
	res, err := tx.ExecContext(ctx, query, lotID, qty, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: returning %d to lot %s would exceed its purchased quantity", stock.ErrInvalidArgument, qty, lotID)
	}
	return nil
}

// adjustmentLotID returns the part's synthetic adjustment lot, creating it
// on first use. Callers hold the part row lock, so no duplicate can appear.
func adjustmentLotID(ctx context.Context, tx *sqlx.Tx, partID string) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, `SELECT id FROM lots WHERE part_id = $1 AND is_adjustment = true`, partID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	now := time.Now()
	note := "synthetic adjustment lot"
	lot := &model.Lot{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		PartID:        partID,
		PurchasedQty:  0,
		QtyRemaining:  0,
		PurchasePrice: decimal.Zero,
		IsAdjustment:  true,
		Note:          &note,
	}
	query := `
        INSERT INTO lots (
            id, part_id, purchased_qty, qty_remaining, purchase_price,
            is_adjustment, note, created_at, updated_at
        )
        VALUES (
            :id, :part_id, :purchased_qty, :qty_remaining, :purchase_price,
            :is_adjustment, :note, :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, query, lot); err != nil {
		return "", err
	}
	return lot.ID, nil
}
