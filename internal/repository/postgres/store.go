package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wecube/server/internal/repository"
)

// Store exposes the Postgres repositories over one connection pool.
type Store struct {
	pool          *pgxpool.Pool
	users         *UserRepo
	blocks        *BlockRepo
	conversations *ConversationRepo
	messages      *MessageRepo
	listings      *ListingRepo
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:          pool,
		users:         NewUserRepo(pool),
		blocks:        NewBlockRepo(pool),
		conversations: NewConversationRepo(pool),
		messages:      NewMessageRepo(pool),
		listings:      NewListingRepo(pool),
	}
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Blocks() repository.BlockRepository               { return s.blocks }
func (s *Store) Conversations() repository.ConversationRepository { return s.conversations }
func (s *Store) Messages() repository.MessageRepository           { return s.messages }
func (s *Store) Listings() repository.ListingRepository           { return s.listings }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
