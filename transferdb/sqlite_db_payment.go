package transferdb

/*
SQLitePaymentStorage is an implementation of PaymentStorage using SQLite.

Table is airdrop_payment
*/

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLitePaymentStorage struct {
	db *sql.DB
}

func NewSQLitePaymentStorage(dbPath string) (*SQLitePaymentStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	storage := &SQLitePaymentStorage{db: db}
	if err := storage.init(); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *SQLitePaymentStorage) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS airdrop_payment (
		Address TEXT,
		Tick TEXT,
		Amount TEXT,
		TxID TEXT,
		P2SHAddress TEXT,
		Timestamp INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_payment_address ON airdrop_payment (Address);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLitePaymentStorage) InsertPayment(payment Payment) error {
	timestamp := payment.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	query := `INSERT INTO airdrop_payment (Address, Tick, Amount, TxID, P2SHAddress, Timestamp) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, payment.Address, payment.Tick, payment.Amount, payment.TxID, payment.P2SHAddress, timestamp)
	return err
}

func (s *SQLitePaymentStorage) QueryByAddress(address string) ([]Payment, error) {
	query := `SELECT Address, Tick, Amount, TxID, P2SHAddress, Timestamp FROM airdrop_payment WHERE Address = ?`
	rows, err := s.db.Query(query, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.Address, &p.Tick, &p.Amount, &p.TxID, &p.P2SHAddress, &p.Timestamp); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
