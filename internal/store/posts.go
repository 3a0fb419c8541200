package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/model"
)

const postColumns = `id, owner_id, category, title, description, total_weight, remaining_weight,
	price, collection_mode, location, item_types, photos, status, created_at, updated_at`

// PostInput holds the owner-supplied fields of a new post.
type PostInput struct {
	Category       model.Category
	Title          string
	Description    string
	TotalWeight    float64
	Price          float64
	CollectionMode string
	Location       string
	ItemTypes      []string
	Photos         []string
}

// CreatePost creates an active post whose remaining weight starts at the
// total weight.
func CreatePost(ctx context.Context, db *sqlx.DB, ownerID string, in PostInput) (*model.Post, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("invalid category %q", in.Category)
	}
	if in.TotalWeight <= 0 {
		return nil, fmt.Errorf("total weight must be positive")
	}
	mode := in.CollectionMode
	if mode == "" {
		mode = model.CollectionMeetup
	}

	now := time.Now().UTC()
	p := &model.Post{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Category:        in.Category,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		TotalWeight:     in.TotalWeight,
		RemainingWeight: in.TotalWeight,
		Price:           in.Price,
		CollectionMode:  mode,
		Location:        in.Location,
		ItemTypes:       model.StringList(in.ItemTypes),
		Photos:          model.StringList(in.Photos),
		Status:          model.PostStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := exec(ctx, db,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, string(p.Category), p.Title, p.Description, p.TotalWeight, p.RemainingWeight,
		p.Price, p.CollectionMode, p.Location, p.ItemTypes, p.Photos, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}

	return GetPost(ctx, db, p.ID)
}

// GetPost returns a post by ID, or nil if it does not exist.
func GetPost(ctx context.Context, db sqlx.ExtContext, id string) (*model.Post, error) {
	p := &model.Post{}
	err := get(ctx, db, p, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}
	return p, nil
}

// ListPosts returns posts, newest first, optionally filtered by status,
// category and owner.
func ListPosts(ctx context.Context, db *sqlx.DB, status string, category model.Category, ownerID string) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	query += ` ORDER BY created_at DESC, id`

	var posts []model.Post
	if err := selectAll(ctx, db, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// ClosePost marks an active post closed. It returns false when the post does
// not exist, is not owned by ownerID, or is already closed.
func ClosePost(ctx context.Context, db *sqlx.DB, id, ownerID string) (bool, error) {
	res, err := exec(ctx, db,
		`UPDATE posts SET status = ?, updated_at = ? WHERE id = ? AND owner_id = ? AND status = ?`,
		model.PostStatusClosed, time.Now().UTC(), id, ownerID, model.PostStatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("closing post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing post: %w", err)
	}
	return n > 0, nil
}
