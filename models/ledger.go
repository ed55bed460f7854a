package models

import (
	"errors"

	"gorm.io/gorm"
)

// Ledger errors. Handlers map these onto HTTP responses.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientKarma = errors.New("insufficient karma points")
	ErrUserNotFound      = errors.New("user not found")
)

// DebitKarma subtracts amount from a user's balance. The check and the write
// are a single conditional UPDATE, so two concurrent debits can never both
// pass a balance that covers only one of them:
//
//	UPDATE users SET karma_points = karma_points - ?
//	WHERE id = ? AND karma_points >= ?
//
// Pass a transaction handle when the debit must commit together with other
// rows. DebitKarma and CreditKarma are the only code allowed to touch
// karma_points.
func DebitKarma(db *gorm.DB, userID uint, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	res := db.Model(&User{}).
		Where("id = ? AND karma_points >= ?", userID, amount).
		UpdateColumn("karma_points", gorm.Expr("karma_points - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the user is gone or the balance does not cover the amount.
		var count int64
		if err := db.Model(&User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}
		return ErrInsufficientKarma
	}
	return nil
}

// CreditKarma adds amount to a user's balance via an atomic increment.
func CreditKarma(db *gorm.DB, userID uint, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	res := db.Model(&User{}).
		Where("id = ?", userID).
		UpdateColumn("karma_points", gorm.Expr("karma_points + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
