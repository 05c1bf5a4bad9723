package notes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// noteDoc is the stored shape of a Note.
type noteDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Note `bson:",inline"`
}

func (d *noteDoc) toNote() *Note {
	n := d.Note
	n.ID = d.ID.Hex()
	n.Tags = nonNilTags(n.Tags)
	return &n
}

// Repo is the MongoDB Store.
type Repo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection("notes"), now: time.Now}
}

// EnsureIndexes creates necessary indexes for the notes collection
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Insert creates a new note
func (r *Repo) Insert(ctx context.Context, n *Note) error {
	if err := checkRecord(n.OwnerID, n.Title, n.Content); err != nil {
		return err
	}

	// Mongo stores millisecond precision; truncate so the returned note
	// matches what a later read sees.
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := noteDoc{ID: primitive.NewObjectID(), Note: *n}
	doc.Tags = nonNilTags(n.Tags)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	*n = *doc.toNote()
	return nil
}

// ListByOwner returns all of the owner's notes, newest first.
func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]*Note, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return decodeAll(ctx, cursor)
}

// FindByIDAndOwner retrieves one note.
func (r *Repo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}

	var doc noteDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid, "user_id": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find note %s: %w", id, err)
	}
	return doc.toNote(), nil
}

// UpdateByIDAndOwner replaces the mutable fields in a single atomic
// findAndModify.
func (r *Repo) UpdateByIDAndOwner(ctx context.Context, id, ownerID string, f NoteFields) (*Note, error) {
	if err := checkRecord(ownerID, f.Title, f.Content); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound()
	}

	update := bson.M{"$set": bson.M{
		"title":      f.Title,
		"content":    f.Content,
		"tags":       nonNilTags(f.Tags),
		"summary":    f.Summary,
		"updated_at": r.now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc noteDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "user_id": ownerID}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("update note %s: %w", id, err)
	}
	return doc.toNote(), nil
}

// DeleteByIDAndOwner removes a note.
func (r *Repo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound()
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if result.DeletedCount == 0 {
		return notFound()
	}
	return nil
}

// Search matches the owner's notes whose title, content or tags contain
// the query as a case-insensitive substring. The query is literal text.
func (r *Repo) Search(ctx context.Context, ownerID string, q SearchQuery) ([]*Note, error) {
	filter := bson.M{"user_id": ownerID}
	if q.Tag != "" {
		filter["tags"] = q.Tag
	}
	if q.Query != "" {
		pat := primitive.Regex{Pattern: regexp.QuoteMeta(q.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pat},
			bson.M{"content": pat},
			bson.M{"tags": pat},
		}
	}

	opts := options.Find().
		SetLimit(int64(q.limit())).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return decodeAll(ctx, cursor)
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*Note, error) {
	defer cursor.Close(ctx)

	var docs []noteDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	notes := make([]*Note, 0, len(docs))
	for i := range docs {
		notes = append(notes, docs[i].toNote())
	}
	return notes, nil
}
