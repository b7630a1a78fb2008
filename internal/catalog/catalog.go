package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

// Defaults is the built-in catalog used when the database has no games.
func Defaults() []domain.Game {
	return []domain.Game{
		{Key: "elden", Title: "Elden Ring", BasePrice: 750000, Cover: "elden.png"},
		{Key: "mc", Title: "Minecraft", BasePrice: 300000, Cover: "minecraft.png"},
		{Key: "exp33", Title: "Clair Obscur: Expedition 33", BasePrice: 500000, Cover: "ekspedisi.png"},
		{Key: "silk", Title: "Hollow Knight: Silksong", BasePrice: 450000, Cover: "silksong.png"},
		{Key: "gow", Title: "God of War", BasePrice: 600000, Cover: "godwar.png"},
		{Key: "p5r", Title: "Persona 5 Royal", BasePrice: 550000, Cover: "persona.png"},
	}
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListGames(ctx context.Context) ([]domain.Game, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, title, base_price, cover_path
		FROM catalog.games
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.Key, &g.Title, &g.BasePrice, &g.Cover); err != nil {
			return nil, err
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return games, nil
}

type Lister interface {
	ListGames(ctx context.Context) ([]domain.Game, error)
}

// Load reads the catalog from src, falling back to Defaults when src is nil
// or holds no games.
func Load(ctx context.Context, src Lister) ([]domain.Game, error) {
	if src == nil {
		return Defaults(), nil
	}

	games, err := src.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		return Defaults(), nil
	}
	return games, nil
}
