package config

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens the document-store client. Unlike MySQL this is not
// fatal when unreachable: the dual-write adapter degrades to single-store
// operation, so a nil client is returned and callers must tolerate it.
func ConnectMongo(uri string) *mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("warning: mongo connect failed, document store disabled: %v", err)
		return nil
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Printf("warning: mongo ping failed, document store disabled: %v", err)
		return nil
	}

	log.Println("connected to mongodb")
	return client
}
