// Package testutil provides in-memory repository implementations for service
// tests. They mirror the guarantees the postgres implementations give:
// single-row atomicity, the revision guard on the document envelope, the
// clamped comment counter and ErrConflict on duplicate keys.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"participa/internal/domain"
	"participa/internal/domain/models"
	"participa/internal/domain/repositories"
	"participa/internal/domain/services"
)

// DocumentRepo is an in-memory repositories.DocumentRepository.
type DocumentRepo struct {
	mu   sync.Mutex
	docs []*models.Document
}

func (r *DocumentRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]*models.Document, len(r.docs))
	for i, d := range r.docs {
		copied := *d
		copied.Apoyos = append([]models.Support(nil), d.Apoyos...)
		saved[i] = &copied
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.docs = saved
	}
}

func (r *DocumentRepo) Create(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs = append(r.docs, &copied)
	return nil
}

func (r *DocumentRepo) find(id string) *models.Document {
	for _, d := range r.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (r *DocumentRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(id)
	if d == nil {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	copied := *d
	copied.Apoyos = append([]models.Support(nil), d.Apoyos...)
	return &copied, nil
}

func (r *DocumentRepo) List(_ context.Context, filter repositories.DocumentFilter) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for i := len(r.docs) - 1; i >= 0; i-- { // newest first
		d := r.docs[i]
		if filter.PublishedOnly && !d.Published {
			continue
		}
		if filter.Author != "" && d.Author != filter.Author {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *DocumentRepo) CountByAuthor(_ context.Context, author string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.docs {
		if d.Author == author {
			n++
		}
	}
	return n, nil
}

func (r *DocumentRepo) UpdateEnvelope(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(doc.ID)
	if d == nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, doc.ID)
	}
	if d.Revision != doc.Revision {
		return fmt.Errorf("%w: stale revision", domain.ErrConflict)
	}
	d.Published = doc.Published
	d.PublishedMailSent = doc.PublishedMailSent
	d.CurrentVersion = doc.CurrentVersion
	d.UpdatedAt = doc.UpdatedAt
	d.Revision++
	doc.Revision = d.Revision
	return nil
}

func (r *DocumentRepo) SetCurrentVersion(_ context.Context, docID, versionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(docID)
	if d == nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	d.CurrentVersion = versionID
	return nil
}

func (r *DocumentRepo) AddCommentCount(_ context.Context, docID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(docID)
	if d == nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	d.CommentsCount += delta
	if d.CommentsCount < 0 {
		d.CommentsCount = 0
	}
	return nil
}

func (r *DocumentRepo) AppendSupport(_ context.Context, docID string, s models.Support) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.find(docID)
	if d == nil {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	d.Apoyos = append(d.Apoyos, s)
	return nil
}

func (r *DocumentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.docs {
		if d.ID == id {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
}

// VersionRepo is an in-memory repositories.VersionRepository.
type VersionRepo struct {
	mu       sync.Mutex
	versions []*models.Version
}

func (r *VersionRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]*models.Version, len(r.versions))
	for i, v := range r.versions {
		copied := *v
		copied.Content = v.Content.Merge(nil)
		copied.Contributions = append([]string(nil), v.Contributions...)
		saved[i] = &copied
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.versions = saved
	}
}

func (r *VersionRepo) Create(_ context.Context, v *models.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.versions {
		if existing.Document == v.Document && existing.Version == v.Version {
			return fmt.Errorf("%w: version %d of %s", domain.ErrConflict, v.Version, v.Document)
		}
	}
	copied := *v
	copied.Content = v.Content.Merge(nil)
	r.versions = append(r.versions, &copied)
	return nil
}

func (r *VersionRepo) GetByID(_ context.Context, id string) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.ID == id {
			copied := *v
			copied.Content = v.Content.Merge(nil)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
}

func (r *VersionRepo) GetByNumber(_ context.Context, docID string, number int) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.Document == docID && v.Version == number {
			copied := *v
			copied.Content = v.Content.Merge(nil)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: version %d of %s", domain.ErrNotFound, number, docID)
}

func (r *VersionRepo) ListByDocument(_ context.Context, docID string) ([]models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Version
	for _, v := range r.versions {
		if v.Document == docID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *VersionRepo) UpdateContent(_ context.Context, id string, content models.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.ID == id {
			v.Content = content
			return nil
		}
	}
	return fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
}

func (r *VersionRepo) ListWithTag(_ context.Context, tagID string) ([]models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Version
	for _, v := range r.versions {
		for _, t := range v.Content.Tags() {
			if t == tagID {
				out = append(out, *v)
				break
			}
		}
	}
	return out, nil
}

// CommentRepo is an in-memory repositories.CommentRepository.
type CommentRepo struct {
	mu       sync.Mutex
	comments []*models.Comment
}

func (r *CommentRepo) Create(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.comments = append(r.comments, &copied)
	return nil
}

func (r *CommentRepo) GetByID(_ context.Context, id string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
}

func matches(c *models.Comment, docID string, filter repositories.CommentFilter) bool {
	if docID != "" && c.Document != docID {
		return false
	}
	if filter.Field != "" && c.Field != filter.Field {
		return false
	}
	if filter.UnresolvedOnly && c.Resolved {
		return false
	}
	if filter.DecoratedOnly && len(c.Decoration) == 0 {
		return false
	}
	if len(filter.IDs) > 0 {
		found := false
		for _, id := range filter.IDs {
			if c.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *CommentRepo) ListByDocument(_ context.Context, docID string, filter repositories.CommentFilter) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		if matches(c, docID, filter) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *CommentRepo) ListByIDs(_ context.Context, ids []string) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (r *CommentRepo) Count(_ context.Context, docID string, filter repositories.CommentFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.comments {
		if matches(c, docID, filter) {
			n++
		}
	}
	return n, nil
}

func (r *CommentRepo) SetResolved(_ context.Context, id string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id {
			c.Resolved = true
			copied := *c
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
}

func (r *CommentRepo) SetReply(_ context.Context, id, reply string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id {
			c.Reply = reply
			copied := *c
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
}

func (r *CommentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.comments {
		if c.ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
}

// LikeRepo is an in-memory repositories.LikeRepository.
type LikeRepo struct {
	mu    sync.Mutex
	likes []*models.Like
}

func (r *LikeRepo) Get(_ context.Context, userID, commentID string) (*models.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.likes {
		if l.User == userID && l.Comment == commentID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: like", domain.ErrNotFound)
}

func (r *LikeRepo) Create(_ context.Context, l *models.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *l
	r.likes = append(r.likes, &copied)
	return nil
}

func (r *LikeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.likes {
		if l.ID == id {
			r.likes = append(r.likes[:i], r.likes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: like %s", domain.ErrNotFound, id)
}

func (r *LikeRepo) CountByComment(_ context.Context, commentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.likes {
		if l.Comment == commentID {
			n++
		}
	}
	return n, nil
}

// SupportTokenRepo is an in-memory repositories.SupportTokenRepository.
type SupportTokenRepo struct {
	mu     sync.Mutex
	tokens []*models.SupportToken
}

func (r *SupportTokenRepo) Create(_ context.Context, t *models.SupportToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *t
	r.tokens = append(r.tokens, &copied)
	return nil
}

func (r *SupportTokenRepo) GetByEmail(_ context.Context, email string) (*models.SupportToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Email == email {
			copied := *t
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: token for %s", domain.ErrNotFound, email)
}

func (r *SupportTokenRepo) GetByToken(_ context.Context, token string) (*models.SupportToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Token == token {
			copied := *t
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: token", domain.ErrNotFound)
}

func (r *SupportTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tokens {
		if t.ID == id {
			r.tokens = append(r.tokens[:i], r.tokens[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: token %s", domain.ErrNotFound, id)
}

// TagRepo is an in-memory repositories.TagRepository.
type TagRepo struct {
	mu   sync.Mutex
	tags []*models.DocumentTag
}

func (r *TagRepo) Create(_ context.Context, t *models.DocumentTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tags {
		if existing.Key == t.Key {
			return fmt.Errorf("%w: tag key %s", domain.ErrConflict, t.Key)
		}
	}
	copied := *t
	r.tags = append(r.tags, &copied)
	return nil
}

func (r *TagRepo) GetByID(_ context.Context, id string) (*models.DocumentTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tags {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: tag %s", domain.ErrNotFound, id)
}

func (r *TagRepo) List(_ context.Context) ([]models.DocumentTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.DocumentTag, 0, len(r.tags))
	for _, t := range r.tags {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TagRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tags {
		if t.ID == id {
			r.tags = append(r.tags[:i], r.tags[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: tag %s", domain.ErrNotFound, id)
}

// UserRepo is an in-memory repositories.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users []*models.User
}

func (r *UserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *u
	copied.Fields = u.Fields.Merge(nil)
	r.users = append(r.users, &copied)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			copied.Fields = u.Fields.Merge(nil)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (r *UserRepo) UpdateFields(_ context.Context, id string, fields models.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Fields = fields
			return nil
		}
	}
	return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (r *UserRepo) UpdateAvatar(_ context.Context, id, avatar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Avatar = avatar
			return nil
		}
	}
	return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (r *UserRepo) ListWithTagsField(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.Fields != nil {
			if _, ok := u.Fields["tags"]; ok {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (r *UserRepo) ListWithTag(_ context.Context, tagID string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		for _, t := range u.SubscribedTags() {
			if t == tagID {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

// Snapshotter is implemented by repos that can capture their state and hand
// back a restore function, so TxManager can undo their writes on failure.
type Snapshotter interface {
	snapshot() (restore func())
}

// TxManager runs the function directly and, when it fails, restores every
// repo listed in Join to its state at the start of the call. This mirrors
// the rollback the postgres transaction manager gives the services.
type TxManager struct {
	Join []Snapshotter
}

func (m TxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	restores := make([]func(), 0, len(m.Join))
	for _, r := range m.Join {
		restores = append(restores, r.snapshot())
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// Notification is one captured notifier call.
type Notification struct {
	Kind    services.NotificationKind
	Payload map[string]string
}

// Notifier captures notifications instead of dispatching them.
type Notifier struct {
	mu   sync.Mutex
	Sent []Notification
}

func (n *Notifier) Notify(_ context.Context, kind services.NotificationKind, payload map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{Kind: kind, Payload: payload})
}

// Kinds returns the kinds of every captured notification, in order.
func (n *Notifier) Kinds() []services.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]services.NotificationKind, len(n.Sent))
	for i, s := range n.Sent {
		out[i] = s.Kind
	}
	return out
}

// StaticCaptcha always issues the same challenge.
type StaticCaptcha struct {
	Answer string
}

func (c StaticCaptcha) Issue() ([]byte, string, error) {
	return []byte("png bytes"), c.Answer, nil
}
