package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/security"
	"github.com/hyperdxio/switchboard/pkg/types"
)

var (
	// Bucket names
	bucketTeams       = []byte("teams")
	bucketTokens      = []byte("ingestion_tokens")
	bucketTokenHashes = []byte("token_hash_index")
	bucketConnections = []byte("connections")
	bucketSources     = []byte("sources")
)

// BoltStore implements Store using BoltDB. The managed-connection
// password is encrypted before it touches disk.
type BoltStore struct {
	db      *bolt.DB
	secrets *security.SecretsManager
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string, secrets *security.SecretsManager) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "switchboard.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketTeams,
			bucketTokens,
			bucketTokenHashes,
			bucketConnections,
			bucketSources,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, secrets: secrets}, nil
}

// Ping runs an empty read transaction, which fails once the backing
// file is closed or unreadable
func (s *BoltStore) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketTeams) == nil {
			return apperr.New(apperr.KindInternal, "bucket %s missing", bucketTeams)
		}
		return nil
	})
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Team operations

func (s *BoltStore) CreateTeam(team *types.Team) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTeams)
		data, err := json.Marshal(team)
		if err != nil {
			return err
		}
		return b.Put([]byte(team.ID), data)
	})
}

func (s *BoltStore) GetTeam(id string) (*types.Team, error) {
	var team types.Team
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTeams)
		data := b.Get([]byte(id))
		if data == nil {
			return apperr.New(apperr.KindNotFound, "team not found: %s", id)
		}
		return json.Unmarshal(data, &team)
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *BoltStore) GetTeamByName(name string) (*types.Team, error) {
	var found *types.Team
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTeams)
		return b.ForEach(func(k, v []byte) error {
			var team types.Team
			if err := json.Unmarshal(v, &team); err != nil {
				return err
			}
			if team.Name == name {
				found = &team
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperr.New(apperr.KindNotFound, "team not found: %s", name)
	}
	return found, nil
}

func (s *BoltStore) ListTeams() ([]*types.Team, error) {
	var teams []*types.Team
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTeams)
		return b.ForEach(func(k, v []byte) error {
			var team types.Team
			if err := json.Unmarshal(v, &team); err != nil {
				return err
			}
			teams = append(teams, &team)
			return nil
		})
	})
	return teams, err
}

// Ingestion token operations

func (s *BoltStore) CreateToken(token *types.IngestionToken) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putToken(tx, token)
	})
}

// putToken writes the record and its hash-index entry, enforcing
// global hash uniqueness inside the surrounding transaction.
func putToken(tx *bolt.Tx, token *types.IngestionToken) error {
	hashes := tx.Bucket(bucketTokenHashes)
	if existing := hashes.Get([]byte(token.TokenHash)); existing != nil && string(existing) != token.ID {
		return apperr.New(apperr.KindInternal, "token hash collision for token %s", token.ID)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketTokens).Put([]byte(token.ID), data); err != nil {
		return err
	}
	return hashes.Put([]byte(token.TokenHash), []byte(token.ID))
}

func (s *BoltStore) GetToken(id string) (*types.IngestionToken, error) {
	var tok types.IngestionToken
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		data := b.Get([]byte(id))
		if data == nil {
			return apperr.New(apperr.KindNotFound, "ingestion token not found: %s", id)
		}
		return json.Unmarshal(data, &tok)
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *BoltStore) GetTokenByHash(hash string) (*types.IngestionToken, error) {
	var tok types.IngestionToken
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketTokenHashes).Get([]byte(hash))
		if id == nil {
			return apperr.New(apperr.KindNotFound, "no token matches hash")
		}
		data := tx.Bucket(bucketTokens).Get(id)
		if data == nil {
			return apperr.New(apperr.KindNotFound, "no token matches hash")
		}
		return json.Unmarshal(data, &tok)
	})
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *BoltStore) ListTokens() ([]*types.IngestionToken, error) {
	var tokens []*types.IngestionToken
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		return b.ForEach(func(k, v []byte) error {
			var tok types.IngestionToken
			if err := json.Unmarshal(v, &tok); err != nil {
				return err
			}
			tokens = append(tokens, &tok)
			return nil
		})
	})
	return tokens, err
}

func (s *BoltStore) ListTokensByTeam(teamID string) ([]*types.IngestionToken, error) {
	var tokens []*types.IngestionToken
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		return b.ForEach(func(k, v []byte) error {
			var tok types.IngestionToken
			if err := json.Unmarshal(v, &tok); err != nil {
				return err
			}
			if tok.TeamID == teamID {
				tokens = append(tokens, &tok)
			}
			return nil
		})
	})
	return tokens, err
}

func (s *BoltStore) UpdateToken(token *types.IngestionToken) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b.Get([]byte(token.ID)) == nil {
			return apperr.New(apperr.KindNotFound, "ingestion token not found: %s", token.ID)
		}
		data, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return b.Put([]byte(token.ID), data)
	})
}

func (s *BoltStore) RotateToken(old, fresh *types.IngestionToken) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(old)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketTokens).Put([]byte(old.ID), data); err != nil {
			return err
		}
		return putToken(tx, fresh)
	})
}

// Managed connection operations

func (s *BoltStore) UpsertConnection(conn *types.ManagedConnection) error {
	if conn.Password != "" {
		encrypted, err := s.secrets.EncryptString(conn.Password)
		if err != nil {
			return fmt.Errorf("failed to encrypt connection password: %w", err)
		}
		conn.EncryptedPassword = encrypted
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConnections)

		// An upsert without a fresh password keeps the stored credential
		if len(conn.EncryptedPassword) == 0 {
			if existing := b.Get([]byte(conn.TeamID)); existing != nil {
				var prev types.ManagedConnection
				if err := json.Unmarshal(existing, &prev); err == nil {
					conn.EncryptedPassword = prev.EncryptedPassword
				}
			}
		}

		data, err := json.Marshal(conn)
		if err != nil {
			return err
		}
		// One managed connection per team
		return b.Put([]byte(conn.TeamID), data)
	})
}

func (s *BoltStore) GetConnection(teamID string) (*types.ManagedConnection, error) {
	conn, err := s.getConnection(teamID)
	if err != nil {
		return nil, err
	}
	conn.EncryptedPassword = nil
	return conn, nil
}

func (s *BoltStore) GetConnectionWithPassword(teamID string) (*types.ManagedConnection, error) {
	conn, err := s.getConnection(teamID)
	if err != nil {
		return nil, err
	}
	if len(conn.EncryptedPassword) > 0 {
		password, err := s.secrets.DecryptString(conn.EncryptedPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt connection password: %w", err)
		}
		conn.Password = password
	}
	conn.EncryptedPassword = nil
	return conn, nil
}

func (s *BoltStore) getConnection(teamID string) (*types.ManagedConnection, error) {
	var conn types.ManagedConnection
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConnections)
		data := b.Get([]byte(teamID))
		if data == nil {
			return apperr.New(apperr.KindNotFound, "managed connection not found for team: %s", teamID)
		}
		return json.Unmarshal(data, &conn)
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Source operations

func (s *BoltStore) CreateSource(source *types.Source) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		data, err := json.Marshal(source)
		if err != nil {
			return err
		}
		return b.Put([]byte(source.ID), data)
	})
}

func (s *BoltStore) GetSource(id string) (*types.Source, error) {
	var source types.Source
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		data := b.Get([]byte(id))
		if data == nil {
			return apperr.New(apperr.KindNotFound, "source not found: %s", id)
		}
		return json.Unmarshal(data, &source)
	})
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func (s *BoltStore) ListSourcesByTeam(teamID string) ([]*types.Source, error) {
	var sources []*types.Source
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		return b.ForEach(func(k, v []byte) error {
			var source types.Source
			if err := json.Unmarshal(v, &source); err != nil {
				return err
			}
			if source.TeamID == teamID {
				sources = append(sources, &source)
			}
			return nil
		})
	})
	return sources, err
}

func (s *BoltStore) UpdateSource(source *types.Source) error {
	return s.CreateSource(source)
}

func (s *BoltStore) DeleteSourceScoped(teamID, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		var source types.Source
		if err := json.Unmarshal(data, &source); err != nil {
			return err
		}
		// Foreign records are left intact without an error so the
		// existence of other tenants' ids never leaks.
		if source.TeamID != teamID {
			return nil
		}
		return b.Delete([]byte(id))
	})
}
