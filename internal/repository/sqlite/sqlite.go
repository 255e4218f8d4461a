// Package sqlite provides a SQLite-backed implementation of repository.AuctionStore.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"
)

// Ensure Store implements repository.AuctionStore
var _ repository.AuctionStore = (*Store)(nil)

// Store keeps each auction as a JSON document and its bids as append-only rows
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// one connection serializes writers, which makes every transaction a
	// whole-database read-modify-write
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeDoc(a models.AuctionProperty) (string, error) {
	doc := a.Clone()
	doc.BidHistory = nil
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) CreateAuction(ctx context.Context, auction models.AuctionProperty) error {
	if auction.ID == "" {
		return fmt.Errorf("sqlite: create auction: %w - empty id", biddingerrors.ErrInvalidAuction)
	}
	doc, err := encodeDoc(auction)
	if err != nil {
		return fmt.Errorf("sqlite: encode auction %s: %w", auction.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM auctions WHERE id = ?`, auction.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: check auction %s: %w", auction.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("sqlite: create auction %s: %w", auction.ID, biddingerrors.ErrAuctionExists)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO auctions (id, status, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		auction.ID, string(auction.Status), doc, formatTime(auction.CreatedAt), formatTime(auction.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert auction %s: %w", auction.ID, err)
	}
	for _, b := range auction.BidHistory {
		if err := insertBid(ctx, tx, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateAuction reads, modifies and writes the document in one transaction
func (s *Store) UpdateAuction(ctx context.Context, auctionID string, fn func(*models.AuctionProperty) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT document FROM auctions WHERE id = ?`, auctionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: update auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: load auction %s: %w", auctionID, err)
	}

	var doc models.AuctionProperty
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("sqlite: decode auction %s: %w", auctionID, err)
	}
	if err := fn(&doc); err != nil {
		return fmt.Errorf("sqlite: update auction %s: %w", auctionID, err)
	}
	doc.ID = auctionID

	encoded, err := encodeDoc(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encode auction %s: %w", auctionID, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE auctions SET status = ?, document = ?, updated_at = ? WHERE id = ?`,
		string(doc.Status), encoded, formatTime(doc.UpdatedAt), auctionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: write auction %s: %w", auctionID, err)
	}
	return tx.Commit()
}

func insertBid(ctx context.Context, tx *sql.Tx, b models.BidEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bids (bid_id, auction_id, bidder_id, bidder_name, amount, bid_type, sequence, placed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bid_id) DO NOTHING`,
		b.BidID, b.AuctionID, b.BidderID, b.BidderName, b.Amount.String(), string(b.BidType), b.Sequence, formatTime(b.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert bid %s: %w", b.BidID, err)
	}
	return nil
}

// AppendBid inserts an accepted bid. Re-appending the same bid id is a no-op.
func (s *Store) AppendBid(ctx context.Context, bid models.BidEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM auctions WHERE id = ?`, bid.AuctionID).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: check auction %s: %w", bid.AuctionID, err)
	}
	if exists == 0 {
		return fmt.Errorf("sqlite: append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err := insertBid(ctx, tx, bid); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (models.AuctionProperty, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM auctions WHERE id = ?`, auctionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuctionProperty{}, fmt.Errorf("sqlite: get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return models.AuctionProperty{}, fmt.Errorf("sqlite: get auction %s: %w", auctionID, err)
	}

	var doc models.AuctionProperty
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return models.AuctionProperty{}, fmt.Errorf("sqlite: decode auction %s: %w", auctionID, err)
	}
	doc.BidHistory, err = s.loadBids(ctx, auctionID)
	if err != nil {
		return models.AuctionProperty{}, err
	}
	return doc, nil
}

func (s *Store) ListAuctions(ctx context.Context) ([]models.AuctionProperty, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM auctions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list auctions: %w", err)
	}

	var out []models.AuctionProperty
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan auction: %w", err)
		}
		var doc models.AuctionProperty
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: decode auction: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: list auctions: %w", err)
	}
	// the single connection must be released before loading bids
	rows.Close()

	for i := range out {
		out[i].BidHistory, err = s.loadBids(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) GetBidsByAuction(ctx context.Context, auctionID string) ([]models.BidEntry, error) {
	bids, err := s.loadBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("sqlite: get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return bids, nil
}

func (s *Store) loadBids(ctx context.Context, auctionID string) ([]models.BidEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bid_id, auction_id, bidder_id, bidder_name, amount, bid_type, sequence, placed_at
		 FROM bids WHERE auction_id = ? ORDER BY sequence`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query bids for %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []models.BidEntry
	for rows.Next() {
		var (
			b        models.BidEntry
			amount   string
			bidType  string
			placedAt string
		)
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.BidderName, &amount, &bidType, &b.Sequence, &placedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan bid: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("sqlite: parse amount of bid %s: %w", b.BidID, err)
		}
		if b.Timestamp, err = time.Parse(time.RFC3339Nano, placedAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse time of bid %s: %w", b.BidID, err)
		}
		b.BidType = models.BidType(bidType)
		bids = append(bids, b)
	}
	return bids, rows.Err()
}
