package db

// RefreshRun records one refresh cycle. Metrics themselves are never stored.
type RefreshRun struct {
	ID          int64   `json:"id"`
	StartedAt   int64   `json:"started_at"`
	DurationMs  int64   `json:"duration_ms"`
	BlockNumber *uint64 `json:"block_number,omitempty"`
	Wallets     int     `json:"wallets"`
	OK          bool    `json:"ok"`
	Error       *string `json:"error,omitempty"`
}

func InsertRefreshRun(r *RefreshRun) error {
	d, err := handle()
	if err != nil {
		return err
	}
	res, err := d.Exec(`
		INSERT INTO refresh_runs (started_at, duration_ms, block_number, wallets, ok, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.DurationMs, r.BlockNumber, r.Wallets, r.OK, r.Error)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func GetRecentRefreshRuns(limit int) ([]RefreshRun, error) {
	d, err := handle()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Query(`
		SELECT id, started_at, duration_ms, block_number, wallets, ok, error
		FROM refresh_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RefreshRun
	for rows.Next() {
		var r RefreshRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationMs, &r.BlockNumber,
			&r.Wallets, &r.OK, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRefreshRuns keeps only the newest keep rows.
func PruneRefreshRuns(keep int) (int64, error) {
	d, err := handle()
	if err != nil {
		return 0, err
	}
	res, err := d.Exec(`
		DELETE FROM refresh_runs WHERE id NOT IN (
			SELECT id FROM refresh_runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
