package storage

import (
	"database/sql"
	"time"

	"blocknotes/internal/domain"
)

// PageStore implements domain.PageStore using SQLite.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, parent_id, title, icon, position`

func (s *PageStore) CreatePage(p *domain.Page) error {
	now := time.Now()
	_, err := s.db.Conn().Exec(
		`INSERT INTO pages (`+pageColumns+`, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, nullID(p.ParentID), p.Title, nullString(p.Icon), p.Position, now, now,
	)
	return err
}

func (s *PageStore) GetPage(id domain.ID) (*domain.Page, error) {
	p, err := scanPage(s.db.Conn().QueryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get page", err)
	}
	return p, nil
}

// ListPages returns the direct children of parentID, or the root pages
// when parentID is nil.
func (s *PageStore) ListPages(parentID *domain.ID) ([]domain.Page, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		rows, err = s.db.Conn().Query(`SELECT ` + pageColumns + ` FROM pages WHERE parent_id IS NULL ORDER BY position ASC, created_at ASC`)
	} else {
		rows, err = s.db.Conn().Query(`SELECT `+pageColumns+` FROM pages WHERE parent_id = ? ORDER BY position ASC, created_at ASC`, *parentID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []domain.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePage(p *domain.Page) error {
	res, err := s.db.Conn().Exec(
		`UPDATE pages SET parent_id = ?, title = ?, icon = ?, position = ?, updated_at = ? WHERE id = ?`,
		nullID(p.ParentID), p.Title, nullString(p.Icon), p.Position, time.Now(), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res, "update page")
}

// DeletePage removes a page; blocks and subpages go with it via cascade.
func (s *PageStore) DeletePage(id domain.ID) error {
	res, err := s.db.Conn().Exec(`DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "delete page")
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		p      domain.Page
		parent sql.NullString
		icon   sql.NullString
	)
	if err := row.Scan(&p.ID, &parent, &p.Title, &icon, &p.Position); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := domain.ID(parent.String)
		p.ParentID = &id
	}
	if icon.Valid {
		p.Icon = &icon.String
	}
	return &p, nil
}

func nullID(id *domain.ID) any {
	if id == nil || id.IsZero() {
		return nil
	}
	return string(*id)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
