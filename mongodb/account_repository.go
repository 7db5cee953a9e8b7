package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.taskhive.io/auth/domain"
)

// caseInsensitive makes email lookups and the email unique index ignore
// case, so one email can never map to two accounts.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// AccountRepository implements domain.AccountRepository on MongoDB.
type AccountRepository struct {
	accounts *mongo.Collection
}

// NewAccountRepository creates the repository and ensures its indexes.
func NewAccountRepository(ctx context.Context, db *mongo.Database) (*AccountRepository, error) {
	repo := &AccountRepository{
		accounts: db.Collection(AccountsCollection),
	}

	_, err := repo.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(caseInsensitive),
		},
		{
			Keys: bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetSparse(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account indexes: %w", err)
	}
	return repo, nil
}

// CreateAccount inserts a new account. A duplicate email or external id
// fails on the unique indexes.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.accounts.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateAccount, err)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccountByEmail looks an account up by email, case-insensitively.
// A missing account returns (nil, nil).
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx,
		bson.M{"email": email},
		options.FindOne().SetCollation(caseInsensitive),
	).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return &account, nil
}

// GetAccountByExternalID looks an account up by its external identity id.
// A missing account returns (nil, nil).
func (r *AccountRepository) GetAccountByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by external id: %w", err)
	}
	return &account, nil
}

// UpdateAccount replaces the stored account document.
func (r *AccountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	res, err := r.accounts.ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateAccount, err)
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account %s not found", account.ID)
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
