package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"blocknotes/internal/domain"
)

// BlockStore implements domain.BlockStore using SQLite.
// Props are kept as the raw JSON the client sent; decoding is lenient, so
// legacy rows with NULL or non-object props read back as empty props.
type BlockStore struct {
	db *DB
}

func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

const blockColumns = `id, page_id, type, content, props_json, position`

func (s *BlockStore) CreateBlock(b *domain.Block) error {
	props, err := json.Marshal(b.Props)
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	now := time.Now()
	_, err = s.db.Conn().Exec(
		`INSERT INTO blocks (`+blockColumns+`, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.PageID, b.Type, b.Content, string(props), b.Position, now, now,
	)
	return err
}

func (s *BlockStore) GetBlock(id domain.ID) (*domain.Block, error) {
	b, err := scanBlock(s.db.Conn().QueryRow(`SELECT `+blockColumns+` FROM blocks WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get block", err)
	}
	return b, nil
}

// ListBlocks returns a page's blocks ordered by position.
func (s *BlockStore) ListBlocks(pageID domain.ID) ([]domain.Block, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+blockColumns+` FROM blocks WHERE page_id = ? ORDER BY position ASC, created_at ASC`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []domain.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

func (s *BlockStore) UpdateBlock(b *domain.Block) error {
	props, err := json.Marshal(b.Props)
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	res, err := s.db.Conn().Exec(
		`UPDATE blocks SET type = ?, content = ?, props_json = ?, position = ?, updated_at = ? WHERE id = ?`,
		b.Type, b.Content, string(props), b.Position, time.Now(), b.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "update block")
}

func (s *BlockStore) DeleteBlock(id domain.ID) error {
	res, err := s.db.Conn().Exec(`DELETE FROM blocks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "delete block")
}

func (s *BlockStore) DeleteBlocksByPage(pageID domain.ID) error {
	_, err := s.db.Conn().Exec(`DELETE FROM blocks WHERE page_id = ?`, pageID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*domain.Block, error) {
	var (
		b       domain.Block
		content sql.NullString
		props   sql.NullString
	)
	if err := row.Scan(&b.ID, &b.PageID, &b.Type, &content, &props, &b.Position); err != nil {
		return nil, err
	}
	b.Content = content.String
	b.Props = domain.ParseProps([]byte(props.String))
	return &b, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
