package mongodb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

const (
	AccountsCollection       = "accounts"        // user accounts
	RolesCollection          = "roles"           // role definitions with permissions
	RevokedTokensCollection  = "revoked_tokens"  // revoked jtis, TTL-indexed
	ProjectMembersCollection = "project_members" // per-project memberships
)

var (
	clientInstance *mongo.Client
	clientOnce     sync.Once
	dbInstance     *mongo.Database
	dbOnce         sync.Once
)

// InitMongoDB initializes the MongoDB client and database instances.
// It should be called once at application startup.
func InitMongoDB(ctx context.Context, uri, dbName string) error {
	var err error
	clientOnce.Do(func() {
		log.Info().Msgf("Initializing MongoDB client with URI: %s", uri)
		clientOptions := options.Client().ApplyURI(uri)
		clientOptions.SetConnectTimeout(10 * time.Second)
		clientOptions.SetMonitor(otelmongo.NewMonitor())

		var client *mongo.Client
		client, err = mongo.Connect(ctx, clientOptions)
		if err != nil {
			return
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
			return
		}

		clientInstance = client
		dbOnce.Do(func() {
			dbInstance = client.Database(dbName)
		})
	})
	if err != nil {
		return err
	}
	if clientInstance == nil {
		return errors.New("mongodb client initialization did not complete")
	}
	return nil
}

// GetDB returns the initialized database handle.
func GetDB() *mongo.Database {
	return dbInstance
}

// Disconnect closes the MongoDB client.
func Disconnect(ctx context.Context) error {
	if clientInstance == nil {
		return nil
	}
	return clientInstance.Disconnect(ctx)
}
