package db

import (
	"database/sql"
	"errors"
	"time"
)

const bindingKey = "contracts_binding"

func GetConfig(key string) (string, error) {
	d, err := handle()
	if err != nil {
		return "", err
	}
	var val string
	err = d.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

func SetConfig(key, value string) error {
	d, err := handle()
	if err != nil {
		return err
	}
	_, err = d.Exec(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func GetNodeID() (string, error) {
	return GetConfig("node_id")
}

// SwapBinding stores the chain/contract/pool fingerprint the daemon is bound
// to and returns the previous one ("" on first start).
func SwapBinding(fingerprint string) (string, error) {
	prev, err := GetConfig(bindingKey)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if prev == fingerprint {
		return prev, nil
	}
	return prev, SetConfig(bindingKey, fingerprint)
}
