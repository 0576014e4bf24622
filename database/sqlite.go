package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chat-team/backend/models"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore 以 SQLite 實作 Store，外鍵與唯一限制交給資料庫檢查
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite 開啟資料庫並執行資料表遷移
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	params := make(url.Values)
	params.Add("_foreign_keys", "true")
	params.Add("_busy_timeout", "5000")
	params.Add("_journal_mode", "WAL")

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite 同時只允許一個寫入者；:memory: 也需要固定在同一條連線上
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, username, password, created_at) VALUES (?, ?, ?, ?)`,
		user.Email, user.Username, user.Password, user.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrEmailAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = result.LastInsertId()
	return err
}

const selectUser = `SELECT id, email, username, password, created_at FROM users`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.Password, &user.CreatedAt)
	return user, err
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryUsers(ctx, selectUser+" WHERE id IN ("+placeholders+") ORDER BY id", args...)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.queryUsers(ctx, selectUser+" ORDER BY id")
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (name, creator_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		chat.Name, chat.CreatorID, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	chat.ID, err = result.LastInsertId()
	return err
}

const selectChat = `SELECT c.id, c.name, c.creator_id, c.created_at, c.updated_at FROM chats c`

func scanChat(row interface{ Scan(...any) error }) (models.Chat, error) {
	var chat models.Chat
	err := row.Scan(&chat.ID, &chat.Name, &chat.CreatorID, &chat.CreatedAt, &chat.UpdatedAt)
	return chat, err
}

func (s *SQLiteStore) GetChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	chat, err := scanChat(s.db.QueryRowContext(ctx, selectChat+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat %d: %w", id, err)
	}
	return &chat, nil
}

func (s *SQLiteStore) ListChatsByUser(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		selectChat+" JOIN chat_members m ON m.chat_id = c.id WHERE m.user_id = ? ORDER BY c.id", userID)
	if err != nil {
		return nil, fmt.Errorf("find chats of user %d: %w", userID, err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLiteStore) DeleteChat(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.ChatMember) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_members (user_id, chat_id, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		member.UserID, member.ChatID, string(member.Role), member.CreatedAt, nullTime(member.UpdatedAt))
	if isUniqueViolation(err) {
		return models.ErrMemberAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert chat member: %w", err)
	}
	member.ID, err = result.LastInsertId()
	return err
}

const selectMember = `SELECT id, user_id, chat_id, role, created_at, updated_at FROM chat_members`

func scanMember(row interface{ Scan(...any) error }) (models.ChatMember, error) {
	var (
		member    models.ChatMember
		role      string
		updatedAt sql.NullTime
	)
	if err := row.Scan(&member.ID, &member.UserID, &member.ChatID, &role, &member.CreatedAt, &updatedAt); err != nil {
		return member, err
	}
	member.Role = models.ChatMemberRole(role)
	if updatedAt.Valid {
		t := updatedAt.Time
		member.UpdatedAt = &t
	}
	return member, nil
}

func (s *SQLiteStore) GetMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	member, err := scanMember(s.db.QueryRowContext(ctx,
		selectMember+" WHERE chat_id = ? AND user_id = ?", chatID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find chat member: %w", err)
	}
	return &member, nil
}

func (s *SQLiteStore) ListMembers(ctx context.Context, chatID int64) ([]models.ChatMember, error) {
	rows, err := s.db.QueryContext(ctx, selectMember+" WHERE chat_id = ? ORDER BY id", chatID)
	if err != nil {
		return nil, fmt.Errorf("find members of chat %d: %w", chatID, err)
	}
	defer rows.Close()

	members := []models.ChatMember{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) UpdateMemberRole(ctx context.Context, member *models.ChatMember) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_members SET role = ?, updated_at = ? WHERE id = ?`,
		string(member.Role), nullTime(member.UpdatedAt), member.ID)
	if err != nil {
		return fmt.Errorf("update chat member %d: %w", member.ID, err)
	}
	return expectAffected(result, models.ErrMemberNotFound)
}

func (s *SQLiteStore) DeleteMember(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat member %d: %w", id, err)
	}
	return expectAffected(result, models.ErrMemberNotFound)
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func expectAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
