package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/phenom-api/internal/model"
)

// ClientRepo provides access to the 'clients' table.
type ClientRepo struct{ DB *sql.DB }

func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{DB: db} }

// Create inserts a client.  ClientSecret must already be hashed.
func (r *ClientRepo) Create(ctx context.Context, c *model.Client) error {
	ensureID(&c.ID)
	stamp(&c.CreatedAt)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO clients (id, name, client_id, client_secret, created_at) VALUES (?,?,?,?,?)",
		c.ID, c.Name, c.ClientID, c.ClientSecret, c.CreatedAt)
	return insertErr(err)
}

// GetByClientID fetches a client by its public identifier.
func (r *ClientRepo) GetByClientID(ctx context.Context, clientID string) (*model.Client, error) {
	var c model.Client
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, client_id, client_secret, created_at FROM clients WHERE client_id=? LIMIT 1",
		clientID).Scan(&c.ID, &c.Name, &c.ClientID, &c.ClientSecret, &c.CreatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	return &c, nil
}

// UpdateSecret replaces the stored secret hash.
func (r *ClientRepo) UpdateSecret(ctx context.Context, clientID, secretHash string) error {
	return affected(r.DB.ExecContext(ctx,
		"UPDATE clients SET client_secret=? WHERE client_id=?", secretHash, clientID))
}
