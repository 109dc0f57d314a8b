package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"invoicing/internal/apperr"
)

const pgUniqueViolation = "23505"

// RuleInsufficientStock is the business rule raised when a sale exceeds
// the available stock.
const RuleInsufficientStock = "INSUFFICIENT_STOCK"

// IsNoRows reports whether err is the "no rows" result of either driver.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// Translate converts a driver error raised by op into the taxonomy:
// unique violations become Conflict errors, everything else a Database
// error carrying the driver message. Values that already belong to the
// taxonomy pass through.
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var ae apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	if column, ok := uniqueViolation(err); ok {
		return apperr.NewConflict(
			"DUPLICATE_"+strings.ToUpper(column),
			fmt.Sprintf("%s: unique constraint on %s", op, column),
			apperr.WithCause(err),
			apperr.WithData(map[string]any{"operation": op, "field": column}),
		)
	}

	return apperr.NewDatabase(op, err.Error(), apperr.WithCause(err))
}

// InsufficientStock builds the error DecrementStock returns.
func InsufficientStock(productID int64, requested int) error {
	return apperr.NewBusinessRule(RuleInsufficientStock,
		fmt.Sprintf("product %d has fewer than %d units", productID, requested),
		apperr.WithUserMessage("No hay stock suficiente para completar la operación"),
		apperr.WithData(map[string]any{"productId": productID, "requested": requested}),
	)
}

// uniqueViolation extracts the offending column from a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return columnFromConstraint(pgErr.TableName, pgErr.ConstraintName), true
	}

	// modernc.org/sqlite: "constraint failed: UNIQUE constraint failed: products.name (2067)"
	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	target := msg[i+len(marker):]
	if j := strings.IndexAny(target, " ,"); j >= 0 {
		target = target[:j]
	}
	if dot := strings.LastIndexByte(target, '.'); dot >= 0 {
		target = target[dot+1:]
	}
	return target, true
}

// columnFromConstraint turns postgres' default "<table>_<column>_key" into
// the column name.
func columnFromConstraint(table, constraint string) string {
	c := strings.TrimSuffix(constraint, "_key")
	if table != "" {
		c = strings.TrimPrefix(c, table+"_")
	}
	if c == "" {
		return "value"
	}
	return c
}

// AlreadyVoid builds the error returned when voiding a void invoice.
func AlreadyVoid(number string) error {
	return apperr.NewInvalidOperation(
		fmt.Sprintf("invoice %s is already void", number),
		apperr.WithUserMessage("La factura ya se encuentra anulada"),
		apperr.WithData(map[string]any{"number": number}),
	)
}
