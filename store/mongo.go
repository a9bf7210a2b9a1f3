package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 10 * time.Second

// MongoStore keeps each table in a collection of the same name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo initializes the MongoDB connection
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	utils.Log.Info("Connected to MongoDB!")
	return NewMongoStore(client, dbName), nil
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// EnsureIndexes creates the unique email index and the wardrobe listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	_, err := s.collection(identitiesTable).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	_, err = s.collection(outfitsTable).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create wardrobe index: %w", err)
	}
	return nil
}

func emailFilter(email string) bson.M {
	return bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(email) + "$", "$options": "i"}}
}

// --- Identities ---

func (s *MongoStore) CreateIdentity(ctx context.Context, id *models.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	err := s.collection(identitiesTable).FindOne(ctx, emailFilter(id.Email)).Err()
	if err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("check identity: %w", err)
	}

	if _, err := s.collection(identitiesTable).InsertOne(ctx, id); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *MongoStore) findIdentity(ctx context.Context, filter bson.M) (*models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var ident models.Identity
	err := s.collection(identitiesTable).FindOne(ctx, filter).Decode(&ident)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &ident, nil
}

func (s *MongoStore) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	return s.findIdentity(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.findIdentity(ctx, emailFilter(email))
}

func (s *MongoStore) setIdentity(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	set["updated_at"] = time.Now()
	res, err := s.collection(identitiesTable).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateIdentityMetadata(ctx context.Context, id string, meta models.UserMetadata) error {
	return s.setIdentity(ctx, id, bson.M{"metadata": meta})
}

func (s *MongoStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.setIdentity(ctx, id, bson.M{"password": hash})
}

func (s *MongoStore) SetResetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	return s.setIdentity(ctx, id, bson.M{"otp": otp, "otp_expires_at": expiresAt})
}

// --- Profiles ---

func (s *MongoStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(profilesTable).ReplaceOne(ctx, bson.M{"_id": p.ID}, p, opts); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *MongoStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var p models.Profile
	err := s.collection(profilesTable).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) UpdateProfileName(ctx context.Context, id, fullName string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := s.collection(profilesTable).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"full_name": fullName}})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Outfits ---

func (s *MongoStore) InsertOutfit(ctx context.Context, o *models.Outfit) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if _, err := s.collection(outfitsTable).InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert outfit: %w", err)
	}
	return nil
}

func (s *MongoStore) ListOutfits(ctx context.Context, userID string) ([]models.Outfit, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}) // Show latest first
	cursor, err := s.collection(outfitsTable).Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("list outfits: %w", err)
	}
	defer cursor.Close(ctx)

	var outfits []models.Outfit
	if err := cursor.All(ctx, &outfits); err != nil {
		return nil, fmt.Errorf("decode outfits: %w", err)
	}
	return outfits, nil
}

func (s *MongoStore) GetOutfit(ctx context.Context, userID, id string) (*models.Outfit, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	var o models.Outfit
	err := s.collection(outfitsTable).FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find outfit: %w", err)
	}
	return &o, nil
}

func (s *MongoStore) UpdateOutfit(ctx context.Context, userID, id string, u models.OutfitUpdate) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	set := bson.M{}
	if u.Style != nil {
		set["style"] = *u.Style
	}
	if u.Accessories != nil {
		set["accessories"] = u.Accessories
	}
	if u.FinalLookName != nil {
		set["final_look_name"] = *u.FinalLookName
	}
	if u.AttireUsedName != nil {
		set["attire_used_name"] = *u.AttireUsedName
	}
	if len(set) == 0 {
		return 0, nil
	}

	res, err := s.collection(outfitsTable).UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("update outfit: %w", err)
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) DeleteOutfit(ctx context.Context, userID, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	res, err := s.collection(outfitsTable).DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete outfit: %w", err)
	}
	return res.DeletedCount, nil
}
