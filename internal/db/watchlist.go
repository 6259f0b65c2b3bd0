package db

import (
	"database/sql"
	"time"
)

// WatchedWallet is an address the refresh loop recomputes every cycle.
type WatchedWallet struct {
	Address string  `json:"address"`
	Label   *string `json:"label,omitempty"`
	AddedAt int64   `json:"added_at"`
}

// AddWatched inserts an address, or updates its label if already present.
// Addresses are stored in their checksummed hex form.
func AddWatched(address string, label *string) error {
	d, err := handle()
	if err != nil {
		return err
	}
	_, err = d.Exec(`
		INSERT INTO watched_wallets (address, label, added_at) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET label = COALESCE(excluded.label, label)`,
		address, label, time.Now().Unix())
	return err
}

// RemoveWatched deletes an address. It reports whether a row was removed.
func RemoveWatched(address string) (bool, error) {
	d, err := handle()
	if err != nil {
		return false, err
	}
	res, err := d.Exec(`DELETE FROM watched_wallets WHERE address = ?`, address)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func GetWatched() ([]WatchedWallet, error) {
	d, err := handle()
	if err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT address, label, added_at FROM watched_wallets ORDER BY added_at, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []WatchedWallet
	for rows.Next() {
		var w WatchedWallet
		if err := rows.Scan(&w.Address, &w.Label, &w.AddedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func IsWatched(address string) (bool, error) {
	d, err := handle()
	if err != nil {
		return false, err
	}
	var one int
	err = d.QueryRow(`SELECT 1 FROM watched_wallets WHERE address = ?`, address).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
