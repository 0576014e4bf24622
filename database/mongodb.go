package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chat-team/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	membersCollection  = "chat_members"
	countersCollection = "counters"

	queryTimeout = 5 * time.Second
)

// MongoStore 以 MongoDB 實作 Store
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// ConnectMongoDB 建立並初始化 MongoDB 連線
func ConnectMongoDB(ctx context.Context, uri, name string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		disconnect(client)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.Println("Connected to MongoDB successfully!")

	store := &MongoStore{client: client, db: client.Database(name)}
	if err := store.ensureIndexes(ctx); err != nil {
		disconnect(client)
		return nil, err
	}
	return store, nil
}

// disconnect 初始化失敗時釋放連線池
func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	// 同一個使用者在同一個聊天室只能有一筆成員資料
	_, err := s.collection(membersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chatId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create chat_members indexes: %w", err)
	}

	_, err = s.collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// nextID 透過 counters 集合產生遞增的整數 ID
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id, err := s.nextID(ctx, usersCollection)
	if err != nil {
		return err
	}
	user.ID = id
	if _, err := s.collection(usersCollection).InsertOne(ctx, user); err != nil {
		user.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	err := s.collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{})
}

func (s *MongoStore) findUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.collection(usersCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id, err := s.nextID(ctx, chatsCollection)
	if err != nil {
		return err
	}
	chat.ID = id
	if _, err := s.collection(chatsCollection).InsertOne(ctx, chat); err != nil {
		chat.ID = 0
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (s *MongoStore) GetChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var chat models.Chat
	err := s.collection(chatsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat %d: %w", id, err)
	}
	return &chat, nil
}

// ListChatsByUser 先從成員集合找出聊天室 ID，再查詢聊天室
func (s *MongoStore) ListChatsByUser(ctx context.Context, userID int64) ([]models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	raw, err := s.collection(membersCollection).Distinct(ctx, "chatId", bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("find chats of user %d: %w", userID, err)
	}
	if len(raw) == 0 {
		return []models.Chat{}, nil
	}

	cursor, err := s.collection(chatsCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": raw}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find chats of user %d: %w", userID, err)
	}
	defer cursor.Close(ctx)

	chats := []models.Chat{}
	if err = cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return chats, nil
}

func (s *MongoStore) DeleteChat(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.collection(membersCollection).DeleteMany(ctx, bson.M{"chatId": id}); err != nil {
		return fmt.Errorf("delete members of chat %d: %w", id, err)
	}
	if _, err := s.collection(chatsCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete chat %d: %w", id, err)
	}
	return nil
}

func (s *MongoStore) CreateMember(ctx context.Context, member *models.ChatMember) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id, err := s.nextID(ctx, membersCollection)
	if err != nil {
		return err
	}
	member.ID = id
	if _, err := s.collection(membersCollection).InsertOne(ctx, member); err != nil {
		member.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrMemberAlreadyExists
		}
		return fmt.Errorf("insert chat member: %w", err)
	}
	return nil
}

func (s *MongoStore) GetMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var member models.ChatMember
	err := s.collection(membersCollection).FindOne(ctx, bson.M{"chatId": chatID, "userId": userID}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat member: %w", err)
	}
	return &member, nil
}

func (s *MongoStore) ListMembers(ctx context.Context, chatID int64) ([]models.ChatMember, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.collection(membersCollection).Find(ctx,
		bson.M{"chatId": chatID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find members of chat %d: %w", chatID, err)
	}
	defer cursor.Close(ctx)

	members := []models.ChatMember{}
	if err = cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode chat members: %w", err)
	}
	return members, nil
}

func (s *MongoStore) UpdateMemberRole(ctx context.Context, member *models.ChatMember) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.collection(membersCollection).UpdateOne(ctx,
		bson.M{"_id": member.ID},
		bson.M{"$set": bson.M{"role": member.Role, "updatedAt": member.UpdatedAt}})
	if err != nil {
		return fmt.Errorf("update chat member %d: %w", member.ID, err)
	}
	if result.MatchedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

func (s *MongoStore) DeleteMember(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.collection(membersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete chat member %d: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return models.ErrMemberNotFound
	}
	return nil
}

// Close 關閉 MongoDB 連線
func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	log.Println("Disconnected from MongoDB.")
	return nil
}
