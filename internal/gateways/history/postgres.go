package history

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
)

// Spin is one row of the roulette_spins table. ID doubles as the entry
// sequence number.
type Spin struct {
	bun.BaseModel `bun:"table:roulette_spins,alias:rs"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Member    string    `bun:"member,notnull"`
	MemberID  *string   `bun:"member_id"`
	StartedAt time.Time `bun:"started_at,notnull"`
	EndsAt    time.Time `bun:"ends_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// SchemaModels and SchemaIndexes are handed to database.DB.InitializeSchema.
var (
	SchemaModels = []interface{}{
		(*Spin)(nil),
	}
	SchemaIndexes = []string{
		"CREATE INDEX IF NOT EXISTS idx_roulette_spins_started_at ON roulette_spins(started_at);",
		"CREATE INDEX IF NOT EXISTS idx_roulette_spins_member_id ON roulette_spins(member_id) WHERE member_id IS NOT NULL;",
	}
)

type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) ([]roulette.HistoryEntry, error) {
	var rows []Spin
	if err := s.db.NewSelect().
		Model(&rows).
		Order("started_at ASC", "id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load spins: %w", err)
	}

	entries := make([]roulette.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry roulette.HistoryEntry) (roulette.HistoryEntry, error) {
	row := spinOf(entry)
	if _, err := s.db.NewInsert().
		Model(&row).
		Returning("id").
		Exec(ctx); err != nil {
		return entry, fmt.Errorf("failed to insert spin: %w", err)
	}
	entry.Seq = row.ID
	return entry, nil
}

func (s *PostgresStore) AssignIdentities(ctx context.Context, ids map[int64]roulette.Identified) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for seq, ident := range ids {
			if _, err := tx.NewUpdate().
				Model((*Spin)(nil)).
				Set("member_id = ?", ident.ID.String()).
				Where("id = ?", seq).
				Where("member = ?", ident.DisplayName).
				Where("member_id IS NULL").
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to assign member id to spin %d: %w", seq, err)
			}
		}
		return nil
	})
}

// Import bulk inserts entries in order. Sequence numbers are reassigned by
// the database.
func (s *PostgresStore) Import(ctx context.Context, entries []roulette.HistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([]Spin, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, spinOf(e))
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to import spins: %w", err)
	}
	return len(rows), nil
}

func (row Spin) entry() roulette.HistoryEntry {
	entry := roulette.HistoryEntry{
		Seq:       row.ID,
		Member:    roulette.LegacyNamedOnly{DisplayName: row.Member},
		StartedAt: row.StartedAt,
		EndsAt:    row.EndsAt,
	}
	if row.MemberID != nil {
		if id, err := snowflake.Parse(*row.MemberID); err == nil && id != 0 {
			entry.Member = roulette.Identified{ID: id, DisplayName: row.Member}
		}
	}
	return entry
}

func spinOf(entry roulette.HistoryEntry) Spin {
	row := Spin{
		StartedAt: entry.StartedAt.UTC(),
		EndsAt:    entry.EndsAt.UTC(),
	}
	if entry.Member != nil {
		row.Member = entry.Member.Name()
	}
	if id, ok := roulette.IdentityOf(entry.Member); ok {
		value := id.String()
		row.MemberID = &value
	}
	return row
}
