package sqlite

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	document    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
	bid_id      TEXT PRIMARY KEY,
	auction_id  TEXT NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
	bidder_id   TEXT NOT NULL,
	bidder_name TEXT NOT NULL DEFAULT '',
	amount      TEXT NOT NULL,
	bid_type    TEXT NOT NULL,
	sequence    INTEGER NOT NULL,
	placed_at   TEXT NOT NULL,
	UNIQUE (auction_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(auction_id, sequence);
CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
