package expense

import "time"

type Expense struct {
	ID              int64      `gorm:"primaryKey"`
	UserID          int64      `gorm:"column:user_id;not null"`
	ReviewerID      *int64     `gorm:"column:reviewer_id"`
	AmountCents     int64      `gorm:"column:amount_cents;not null"`
	Currency        string     `gorm:"column:currency;not null;default:USD"`
	Description     string     `gorm:"column:description;not null"`
	Merchant        string     `gorm:"column:merchant;not null"`
	IncurredOn      time.Time  `gorm:"column:incurred_on;type:date;not null"`
	Status          string     `gorm:"column:status;not null;default:drafted"`
	SubmittedAt     *time.Time `gorm:"column:submitted_at"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at"`
	RejectionReason *string    `gorm:"column:rejection_reason"`
	CategoryID      *int64     `gorm:"column:category_id"`
	LockVersion     int64      `gorm:"column:lock_version;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}
