package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/crossbooks/crossbooks/internal/platform/db"
)

// Store exposes order data operations, usable on a pool or inside an
// enclosing transaction.
type Store interface {
	GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error)
	GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error)
	ListSalesOrders(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error)
	ListPurchaseOrders(ctx context.Context, req ListOrdersRequest) ([]PurchaseOrder, error)
	FindSalesOrdersByReference(ctx context.Context, reference string) ([]SalesOrder, error)
	FindPurchaseOrdersByReference(ctx context.Context, reference string) ([]PurchaseOrder, error)
	InsertSalesOrder(ctx context.Context, order *SalesOrder) (int64, error)
	InsertSalesOrderLine(ctx context.Context, line *SalesOrderLine) (int64, error)
	InsertPurchaseOrder(ctx context.Context, order *PurchaseOrder) (int64, error)
	InsertPurchaseOrderLine(ctx context.Context, line *PurchaseOrderLine) (int64, error)
	SetSalesOrderStatus(ctx context.Context, id int64, status SalesOrderStatus) error
	SetPurchaseOrderStatus(ctx context.Context, id int64, status PurchaseOrderStatus) error
	UpdateSalesOrderLineInvoiced(ctx context.Context, lineID int64, invoicedQty decimal.Decimal, fully bool) error
	GenerateSalesOrderNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
	GeneratePurchaseOrderNumber(ctx context.Context, companyID int64, date time.Time) (string, error)
}

// Repository is a Store that can also open transactions.
type Repository interface {
	Store
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}

type store struct {
	db db.DBTX
}

// NewStore builds a Store over a pool or transaction.
func NewStore(dbtx db.DBTX) Store {
	return &store{db: dbtx}
}

type repository struct {
	store
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{store: store{db: pool}, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

const salesOrderColumns = `id, company_id, customer_id, doc_number, reference_number, order_date, status, total, created_at, updated_at`

func (s *store) scanSalesOrders(rows pgx.Rows) ([]SalesOrder, error) {
	defer rows.Close()
	var out []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.CustomerID, &o.DocNumber, &o.ReferenceNumber, &o.OrderDate, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *store) GetSalesOrder(ctx context.Context, id int64) (*SalesOrder, error) {
	var o SalesOrder
	err := s.db.QueryRow(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CompanyID, &o.CustomerID, &o.DocNumber, &o.ReferenceNumber, &o.OrderDate, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	lines, err := s.salesOrderLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (s *store) salesOrderLines(ctx context.Context, orderID int64) ([]SalesOrderLine, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, sales_order_id, product_id, description, quantity, unit_price, amount, invoiced_quantity, fully_invoiced
FROM sales_order_lines WHERE sales_order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []SalesOrderLine
	for rows.Next() {
		var l SalesOrderLine
		if err := rows.Scan(&l.ID, &l.SalesOrderID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount, &l.InvoicedQuantity, &l.FullyInvoiced); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

const purchaseOrderColumns = `id, company_id, supplier_id, doc_number, reference_number, order_date, status, total, created_at, updated_at`

func (s *store) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var o PurchaseOrder
	err := s.db.QueryRow(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CompanyID, &o.SupplierID, &o.DocNumber, &o.ReferenceNumber, &o.OrderDate, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	lines, err := s.purchaseOrderLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (s *store) purchaseOrderLines(ctx context.Context, orderID int64) ([]PurchaseOrderLine, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, purchase_order_id, product_id, description, quantity, unit_price, amount
FROM purchase_order_lines WHERE purchase_order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []PurchaseOrderLine
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *store) ListSalesOrders(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	query := `SELECT ` + salesOrderColumns + ` FROM sales_orders WHERE company_id=$1`
	args := []interface{}{req.CompanyID}
	argPos := 2
	if req.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		query += fmt.Sprintf(" AND order_date >= $%d", argPos)
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		query += fmt.Sprintf(" AND order_date <= $%d", argPos)
		args = append(args, *req.DateTo)
		argPos++
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return s.scanSalesOrders(rows)
}

func (s *store) ListPurchaseOrders(ctx context.Context, req ListOrdersRequest) ([]PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE company_id=$1`
	args := []interface{}{req.CompanyID}
	argPos := 2
	if req.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, req.Status)
		argPos++
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY order_date DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, req.Offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.SupplierID, &o.DocNumber, &o.ReferenceNumber, &o.OrderDate, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *store) FindSalesOrdersByReference(ctx context.Context, reference string) ([]SalesOrder, error) {
	rows, err := s.db.Query(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	orders, err := s.scanSalesOrders(rows)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		lines, err := s.salesOrderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (s *store) FindPurchaseOrdersByReference(ctx context.Context, reference string) ([]PurchaseOrder, error) {
	rows, err := s.db.Query(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE reference_number=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.SupplierID, &o.DocNumber, &o.ReferenceNumber, &o.OrderDate, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := s.purchaseOrderLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (s *store) InsertSalesOrder(ctx context.Context, order *SalesOrder) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO sales_orders (company_id, customer_id, doc_number, reference_number, order_date, status, total)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		order.CompanyID, order.CustomerID, order.DocNumber, order.ReferenceNumber, order.OrderDate, order.Status, order.Total).Scan(&id)
	return id, err
}

func (s *store) InsertSalesOrderLine(ctx context.Context, line *SalesOrderLine) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO sales_order_lines (sales_order_id, product_id, description, quantity, unit_price, amount, invoiced_quantity, fully_invoiced)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		line.SalesOrderID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.InvoicedQuantity, line.FullyInvoiced).Scan(&id)
	return id, err
}

func (s *store) InsertPurchaseOrder(ctx context.Context, order *PurchaseOrder) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO purchase_orders (company_id, supplier_id, doc_number, reference_number, order_date, status, total)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		order.CompanyID, order.SupplierID, order.DocNumber, order.ReferenceNumber, order.OrderDate, order.Status, order.Total).Scan(&id)
	return id, err
}

func (s *store) InsertPurchaseOrderLine(ctx context.Context, line *PurchaseOrderLine) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO purchase_order_lines (purchase_order_id, product_id, description, quantity, unit_price, amount)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		line.PurchaseOrderID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.Amount).Scan(&id)
	return id, err
}

func (s *store) SetSalesOrderStatus(ctx context.Context, id int64, status SalesOrderStatus) error {
	cmd, err := s.db.Exec(ctx, `UPDATE sales_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("sales order %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *store) SetPurchaseOrderStatus(ctx context.Context, id int64, status PurchaseOrderStatus) error {
	cmd, err := s.db.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *store) UpdateSalesOrderLineInvoiced(ctx context.Context, lineID int64, invoicedQty decimal.Decimal, fully bool) error {
	cmd, err := s.db.Exec(ctx,
		`UPDATE sales_order_lines SET invoiced_quantity=$2, fully_invoiced=$3 WHERE id=$1`, lineID, invoicedQty, fully)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("sales order line %d: %w", lineID, ErrNotFound)
	}
	return nil
}

// Document numbers advance from the highest existing suffix per company,
// so deletions never recycle a number. The unique (company_id, doc_number)
// constraint is the race backstop.
func (s *store) GenerateSalesOrderNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	next, err := nextDocSeq(ctx, s.db, "sales_orders", companyID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SO-%s-%04d", date.Format("0601"), next), nil
}

func (s *store) GeneratePurchaseOrderNumber(ctx context.Context, companyID int64, date time.Time) (string, error) {
	next, err := nextDocSeq(ctx, s.db, "purchase_orders", companyID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%s-%04d", date.Format("0601"), next), nil
}

func nextDocSeq(ctx context.Context, dbtx db.DBTX, table string, companyID int64) (int64, error) {
	var next int64
	query := fmt.Sprintf(
		`SELECT COALESCE(MAX(split_part(doc_number, '-', 3)::bigint), 0) + 1 FROM %s WHERE company_id=$1`, table)
	if err := dbtx.QueryRow(ctx, query, companyID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}
