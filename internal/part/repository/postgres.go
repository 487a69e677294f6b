package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bengkelos/inventory-service/internal/model"
	"github.com/bengkelos/inventory-service/internal/part"
	"github.com/bengkelos/inventory-service/internal/part/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Part) error {
	query := `
        INSERT INTO parts (
            id, name, brand, grade, sell_price, min_stock, is_active,
            created_at, updated_at
        )
        VALUES (
            :id, :name, :brand, :grade, :sell_price, :min_stock, :is_active,
            :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Update(ctx context.Context, p *model.Part) error {
	query := `
        UPDATE parts SET
            name = :name, brand = :brand, grade = :grade,
            sell_price = :sell_price, min_stock = :min_stock,
            is_active = :is_active, updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", part.ErrNotFound, p.ID)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Part, error) {
	var p model.Part
	err := r.DB.GetContext(ctx, &p, `SELECT * FROM parts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", part.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const partWithStockSelect = `
    SELECT p.*, COALESCE(SUM(l.qty_remaining), 0) AS stock_qty
    FROM parts p
    LEFT JOIN lots l ON l.part_id = p.id
`

func (r *PGRepository) FindAll(ctx context.Context, f *dto.PartFilters) ([]model.PartWithStock, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Search != "" {
		conditions = append(conditions, "(p.name ILIKE :search OR p.brand ILIKE :search)")
		args["search"] = "%" + f.Search + "%"
	}
	if f.Grade != "" {
		conditions = append(conditions, "p.grade = :grade")
		args["grade"] = f.Grade
	}
	if f.IsActive != nil {
		conditions = append(conditions, "p.is_active = :is_active")
		args["is_active"] = *f.IsActive
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery := "SELECT count(*) FROM parts p" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := partWithStockSelect + whereClause + " GROUP BY p.id ORDER BY p.name ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	var items []model.PartWithStock
	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) FindLowStock(ctx context.Context, page, pageSize int) ([]model.PartWithStock, int, error) {
	having := " WHERE p.is_active = true AND p.min_stock > 0 GROUP BY p.id HAVING COALESCE(SUM(l.qty_remaining), 0) <= p.min_stock"

	var count int
	countQuery := "SELECT count(*) FROM (" + partWithStockSelect + having + ") low"
	if err := r.DB.GetContext(ctx, &count, countQuery); err != nil {
		return nil, 0, err
	}

	query := partWithStockSelect + having + " ORDER BY p.name ASC"
	if pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset)
	}

	var items []model.PartWithStock
	err := r.DB.SelectContext(ctx, &items, query)
	return items, count, err
}
