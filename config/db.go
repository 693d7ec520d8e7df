// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	// Log connection URI (without password for security)
	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(databaseName()).Collection(collectionName)
}

func databaseName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "accounts"
	}
	return dbName
}

// setupCollections ensures the users collection and its unique indexes exist.
// Email and mobile are each unique lookup keys for accounts.
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(databaseName())
	db.CreateCollection(ctx, "users")

	userColl := db.Collection("users")
	for _, key := range []string{"email", "mobile"} {
		indexModel := mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := userColl.Indexes().CreateOne(ctx, indexModel); err != nil {
			log.Printf("Error creating %s index: %v", key, err)
		}
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
