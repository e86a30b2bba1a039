package transferdb

/*
SQLiteBalanceStorage is an implementation of BalanceStorage using SQLite.

Table is airdrop_balance. Adjust and Get run through a statement cache
since every transfer touches the same two ledgers.
*/

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Nacho-the-Kat/krc721-airdrop/database"
)

type SQLiteBalanceStorage struct {
	db    *sql.DB
	cache *database.StmtCache
}

func NewSQLiteBalanceStorage(dbPath string) (*SQLiteBalanceStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	storage := &SQLiteBalanceStorage{db: db, cache: database.NewStmtCache(db)}
	if err := storage.init(); err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteBalanceStorage) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS airdrop_balance (
		Wallet TEXT,
		Name TEXT,
		Amount INTEGER DEFAULT 0,
		PRIMARY KEY (Wallet, Name)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteBalanceStorage) Adjust(wallet string, ledger string, delta int64) error {
	query := `INSERT INTO airdrop_balance (Wallet, Name, Amount) VALUES (?, ?, ?)
	ON CONFLICT(Wallet, Name) DO UPDATE SET Amount = Amount + excluded.Amount`
	stmt, err := s.cache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(wallet, ledger, delta)
	return err
}

func (s *SQLiteBalanceStorage) Get(wallet string, ledger string) (int64, error) {
	query := `SELECT Amount FROM airdrop_balance WHERE Wallet = ? AND Name = ?`
	stmt, err := s.cache.Prepare(query)
	if err != nil {
		return 0, err
	}
	var amount int64
	err = stmt.QueryRow(wallet, ledger).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}
