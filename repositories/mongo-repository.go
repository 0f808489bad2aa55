package repositories

import (
	"context"
	"fmt"

	"tracker-project/tracker-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTaskRepository keeps the task collection in a MongoDB collection
// while honoring the same whole-collection Load/Save contract as the
// file store: Save replaces the collection contents wholesale.
type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(collection *mongo.Collection) *MongoTaskRepository {
	return &MongoTaskRepository{collection: collection}
}

func (r *MongoTaskRepository) Load(ctx context.Context) ([]*models.Task, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	for cursor.Next(ctx) {
		var task models.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, &task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return tasks, nil
}

func (r *MongoTaskRepository) Save(ctx context.Context, tasks []*models.Task) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear task collection: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(tasks))
	for _, task := range tasks {
		docs = append(docs, task)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}
