package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
)

const stagingSuffix = "_staging"

// RecordStore keeps one MongoDB collection per record collection. A save
// fills a staging collection and renames it over the live one, so readers
// never observe a partly written collection.
type RecordStore struct {
	db *mongo.Database
}

func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{db: db}
}

type userDoc struct {
	Seq         int    `bson:"seq"`
	Username    string `bson:"username"`
	Password    string `bson:"password"`
	Role        string `bson:"role"`
	Team        string `bson:"team,omitempty"`
	DisplayName string `bson:"display_name,omitempty"`
}

type taskDoc struct {
	Seq            int        `bson:"seq"`
	TaskID         int        `bson:"task_id"`
	Title          string     `bson:"title"`
	Description    string     `bson:"description"`
	AssignedTo     string     `bson:"assigned_to"`
	AssignedBy     string     `bson:"assigned_by"`
	DueDate        *time.Time `bson:"due_date,omitempty"`
	Status         string     `bson:"status"`
	Priority       string     `bson:"priority"`
	Team           string     `bson:"team,omitempty"`
	CreatedDate    time.Time  `bson:"created_date"`
	CompletionDate *time.Time `bson:"completion_date,omitempty"`
}

type auditDoc struct {
	Seq       int       `bson:"seq"`
	LogID     int       `bson:"log_id"`
	Timestamp time.Time `bson:"timestamp"`
	User      string    `bson:"user"`
	Action    string    `bson:"action"`
	Details   string    `bson:"details"`
	Category  string    `bson:"category"`
}

type fileDoc struct {
	Seq        int       `bson:"seq"`
	Filename   string    `bson:"filename"`
	Size       int64     `bson:"size"`
	UploadedBy string    `bson:"uploaded_by"`
	Timestamp  time.Time `bson:"timestamp"`
}

type messageDoc struct {
	Seq       int       `bson:"seq"`
	MsgID     int       `bson:"msg_id"`
	Timestamp time.Time `bson:"timestamp"`
	User      string    `bson:"user"`
	To        string    `bson:"to"`
	Message   string    `bson:"message"`
}

func (r *RecordStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	docs, err := load[userDoc](ctx, r.db, ports.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, len(docs))
	for i, d := range docs {
		users[i] = domain.User{
			Username:    d.Username,
			Password:    d.Password,
			Role:        domain.ParseRole(d.Role),
			Team:        d.Team,
			DisplayName: d.DisplayName,
		}
	}
	return users, nil
}

func (r *RecordStore) SaveUsers(ctx context.Context, users []domain.User) error {
	docs := make([]userDoc, len(users))
	for i, u := range users {
		docs[i] = userDoc{Seq: i + 1, Username: u.Username, Password: u.Password, Role: string(u.Role), Team: u.Team, DisplayName: u.DisplayName}
	}
	return replace(ctx, r.db, ports.CollectionUsers, docs)
}

func (r *RecordStore) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	docs, err := load[taskDoc](ctx, r.db, ports.CollectionTasks)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, len(docs))
	for i, d := range docs {
		tasks[i] = fromTaskDoc(d)
	}
	return tasks, nil
}

func (r *RecordStore) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	docs := make([]taskDoc, len(tasks))
	for i, t := range tasks {
		docs[i] = toTaskDoc(i+1, t)
	}
	return replace(ctx, r.db, ports.CollectionTasks, docs)
}

func (r *RecordStore) LoadAudit(ctx context.Context) ([]domain.AuditEntry, error) {
	docs, err := load[auditDoc](ctx, r.db, ports.CollectionAudit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditEntry, len(docs))
	for i, d := range docs {
		entries[i] = domain.AuditEntry{ID: d.LogID, Timestamp: d.Timestamp.UTC(), User: d.User, Action: d.Action, Details: d.Details, Category: d.Category}
	}
	return entries, nil
}

func (r *RecordStore) SaveAudit(ctx context.Context, entries []domain.AuditEntry) error {
	docs := make([]auditDoc, len(entries))
	for i, e := range entries {
		docs[i] = auditDoc{Seq: i + 1, LogID: e.ID, Timestamp: e.Timestamp, User: e.User, Action: e.Action, Details: e.Details, Category: e.Category}
	}
	return replace(ctx, r.db, ports.CollectionAudit, docs)
}

func (r *RecordStore) LoadFiles(ctx context.Context) ([]domain.FileMeta, error) {
	docs, err := load[fileDoc](ctx, r.db, ports.CollectionFiles)
	if err != nil {
		return nil, err
	}
	files := make([]domain.FileMeta, len(docs))
	for i, d := range docs {
		files[i] = domain.FileMeta{Filename: d.Filename, Size: d.Size, UploadedBy: d.UploadedBy, Timestamp: d.Timestamp.UTC()}
	}
	return files, nil
}

func (r *RecordStore) SaveFiles(ctx context.Context, files []domain.FileMeta) error {
	docs := make([]fileDoc, len(files))
	for i, f := range files {
		docs[i] = fileDoc{Seq: i + 1, Filename: f.Filename, Size: f.Size, UploadedBy: f.UploadedBy, Timestamp: f.Timestamp}
	}
	return replace(ctx, r.db, ports.CollectionFiles, docs)
}

func (r *RecordStore) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	docs, err := load[messageDoc](ctx, r.db, ports.CollectionMessages)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, len(docs))
	for i, d := range docs {
		messages[i] = domain.Message{ID: d.MsgID, Timestamp: d.Timestamp.UTC(), User: d.User, To: d.To, Message: d.Message}
	}
	return messages, nil
}

func (r *RecordStore) SaveMessages(ctx context.Context, messages []domain.Message) error {
	docs := make([]messageDoc, len(messages))
	for i, m := range messages {
		docs[i] = messageDoc{Seq: i + 1, MsgID: m.ID, Timestamp: m.Timestamp, User: m.User, To: m.To, Message: m.Message}
	}
	return replace(ctx, r.db, ports.CollectionMessages, docs)
}

func (r *RecordStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := r.db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: mongo ping: %w", domain.ErrStoreIO, err)
	}
	return nil
}

func toTaskDoc(seq int, t domain.Task) taskDoc {
	return taskDoc{
		Seq:            seq,
		TaskID:         t.ID,
		Title:          t.Title,
		Description:    t.Description,
		AssignedTo:     t.AssignedTo,
		AssignedBy:     t.AssignedBy,
		DueDate:        t.DueDate,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		Team:           t.Team,
		CreatedDate:    t.CreatedDate,
		CompletionDate: t.CompletionDate,
	}
}

func fromTaskDoc(d taskDoc) domain.Task {
	t := domain.Task{
		ID:          d.TaskID,
		Title:       d.Title,
		Description: d.Description,
		AssignedTo:  d.AssignedTo,
		AssignedBy:  d.AssignedBy,
		DueDate:     utcPtr(d.DueDate),
		Status:      domain.TaskStatus(d.Status),
		Priority:    domain.Priority(d.Priority),
		Team:        d.Team,
		CreatedDate: d.CreatedDate.UTC(),
	}
	t.RestoreCompletion(utcPtr(d.CompletionDate))
	return t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func stagingName(c ports.Collection) string {
	return string(c) + stagingSuffix
}

func load[T any](ctx context.Context, db *mongo.Database, c ports.Collection) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := db.Collection(string(c)).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %w", domain.ErrStoreIO, c, err)
	}
	defer cur.Close(ctx)

	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrStoreIO, c, err)
	}
	return docs, nil
}

// replace writes docs to the staging collection and renames it over the live
// collection. An empty collection is stored by dropping the live one.
func replace[T any](ctx context.Context, db *mongo.Database, c ports.Collection, docs []T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if len(docs) == 0 {
		if err := db.Collection(string(c)).Drop(ctx); err != nil {
			return fmt.Errorf("%w: drop %s: %w", domain.ErrStoreIO, c, err)
		}
		return nil
	}

	staging := db.Collection(stagingName(c))
	if err := staging.Drop(ctx); err != nil {
		return fmt.Errorf("%w: reset staging %s: %w", domain.ErrStoreIO, c, err)
	}

	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	if _, err := staging.InsertMany(ctx, batch); err != nil {
		return fmt.Errorf("%w: insert %s: %w", domain.ErrStoreIO, c, err)
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: db.Name() + "." + stagingName(c)},
		{Key: "to", Value: db.Name() + "." + string(c)},
		{Key: "dropTarget", Value: true},
	}
	if err := db.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("%w: swap %s: %w", domain.ErrStoreIO, c, err)
	}
	return nil
}
