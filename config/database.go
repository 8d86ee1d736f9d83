package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			username VARCHAR(100) UNIQUE,
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS households (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS household_members (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(50) DEFAULT 'MEMBER',
			joined_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS household_invitations (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			email VARCHAR(255) NOT NULL,
			invited_by UUID REFERENCES users(id),
			token VARCHAR(255) UNIQUE NOT NULL,
			status VARCHAR(50) DEFAULT 'pending',
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			description VARCHAR(255) NOT NULL,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			currency CHAR(3) NOT NULL,
			category VARCHAR(50) NOT NULL,
			frequency VARCHAR(20) NOT NULL,
			day_of_month INTEGER NOT NULL CHECK (day_of_month BETWEEN 1 AND 31),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			next_due_date DATE NOT NULL,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			description VARCHAR(255) NOT NULL,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			currency CHAR(3) NOT NULL,
			category VARCHAR(50) NOT NULL,
			date DATE NOT NULL,
			group_id VARCHAR(255),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS incomes (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			description VARCHAR(255) NOT NULL,
			amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			currency CHAR(3) NOT NULL,
			date DATE NOT NULL,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			category VARCHAR(50) NOT NULL,
			monthly_limit NUMERIC(12,2) NOT NULL CHECK (monthly_limit > 0),
			currency CHAR(3) NOT NULL,
			household_id UUID REFERENCES households(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(household_id, category)
		)`,

		// group_id carries the idempotency key for subscription-generated
		// expenses ("sub-<id>-<date>"). Manual expenses leave it NULL, so
		// uniqueness is enforced with a partial index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_expenses_group_id
			ON expenses(group_id) WHERE group_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_subscriptions_due
			ON subscriptions(next_due_date) WHERE active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_household_id ON subscriptions(household_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_household_id ON expenses(household_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_incomes_household_id ON incomes(household_id)`,
		`CREATE INDEX IF NOT EXISTS idx_household_members_household_id ON household_members(household_id)`,
		`CREATE INDEX IF NOT EXISTS idx_household_invitations_token ON household_invitations(token)`,
		`CREATE INDEX IF NOT EXISTS idx_household_invitations_email ON household_invitations(email)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
