package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"board-ai-go/internal/model"
)

// NewMemoryRepositories 创建一组进程内仓储，用于 driver=memory 的本地运行和测试。
// 返回值始终是存储对象的拷贝，调用方修改返回值不会影响已保存的数据。
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Organizations: &memoryOrganizationRepository{byID: make(map[uint]model.Organization)},
		Users:         &memoryUserRepository{byID: make(map[uint]model.User)},
		Documents:     &memoryDocumentRepository{byID: make(map[uint]model.Document)},
		Personalities: &memoryPersonalityRepository{byID: make(map[uint]model.Personality)},
		Conversations: &memoryConversationRepository{store: &conversationStore{byID: make(map[uint]model.Conversation)}},
	}
}

type memoryOrganizationRepository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.Organization
}

func (r *memoryOrganizationRepository) FirstOrCreateByName(_ context.Context, name string) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, org := range r.byID {
		if org.Name == name {
			out := org
			return &out, nil
		}
	}
	r.nextID++
	now := time.Now()
	org := model.Organization{
		ID: r.nextID, Name: name, SubscriptionTier: "basic", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	r.byID[org.ID] = org
	return &org, nil
}

func (r *memoryOrganizationRepository) FindByID(_ context.Context, id uint) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

type memoryUserRepository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.User
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return ErrDuplicatedKey
		}
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	r.byID[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) FindByID(_ context.Context, userID uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

type memoryDocumentRepository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.Document
}

func copyDocument(d model.Document) model.Document {
	if d.Content != nil {
		c := *d.Content
		d.Content = &c
	}
	if d.ParentID != nil {
		p := *d.ParentID
		d.ParentID = &p
	}
	if d.Metadata != nil {
		m := make(model.Metadata, len(d.Metadata))
		for k, v := range d.Metadata {
			m[k] = v
		}
		d.Metadata = m
	}
	d.Path = ""
	return d
}

func (r *memoryDocumentRepository) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = r.nextID
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}
	r.byID[doc.ID] = copyDocument(*doc)
	return nil
}

func (r *memoryDocumentRepository) FindByID(_ context.Context, orgID, id uint) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok || d.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	out := copyDocument(d)
	return &out, nil
}

func (r *memoryDocumentRepository) FindByOrganization(ctx context.Context, orgID uint) ([]model.Document, error) {
	return r.FindRecent(ctx, orgID, -1)
}

func (r *memoryDocumentRepository) FindRecent(_ context.Context, orgID uint, limit int) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]model.Document, 0)
	for _, d := range r.byID {
		if d.OrganizationID == orgID {
			docs = append(docs, copyDocument(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return newerFirst(docs[i].Timestamp, docs[i].ID, docs[j].Timestamp, docs[j].ID)
	})
	if limit >= 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r *memoryDocumentRepository) CountChildren(_ context.Context, orgID, parentID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.byID {
		if d.OrganizationID == orgID && d.ParentID != nil && *d.ParentID == parentID {
			n++
		}
	}
	return n, nil
}

func (r *memoryDocumentRepository) Delete(_ context.Context, orgID, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok || d.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type memoryPersonalityRepository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.Personality
}

func (r *memoryPersonalityRepository) Create(_ context.Context, p *model.Personality) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.OrganizationID == p.OrganizationID && existing.Name == p.Name {
			return ErrDuplicatedKey
		}
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.byID[p.ID] = *p
	return nil
}

func (r *memoryPersonalityRepository) FindByOrganization(_ context.Context, orgID uint) ([]model.Personality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := make([]model.Personality, 0)
	for _, p := range r.byID {
		if p.OrganizationID == orgID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	return ps, nil
}

func (r *memoryPersonalityRepository) FindByName(_ context.Context, orgID uint, name string) (*model.Personality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.OrganizationID == orgID && strings.EqualFold(p.Name, name) {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryPersonalityRepository) Delete(_ context.Context, orgID, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// conversationStore 由同一组仓储的所有 session 共享。
type conversationStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.Conversation
	// sessions 记录当前打开的独占 session 数量，测试用于确认 session 已归还。
	sessions int
}

type memoryConversationRepository struct {
	store *conversationStore
}

func copyConversation(c model.Conversation) model.Conversation {
	c.Discussion = c.Discussion.Clone()
	return c
}

func (r *memoryConversationRepository) Create(_ context.Context, conv *model.Conversation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	conv.ID = s.nextID
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}
	s.byID[conv.ID] = copyConversation(*conv)
	return nil
}

func (r *memoryConversationRepository) FindByID(_ context.Context, orgID, id uint) (*model.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	out := copyConversation(c)
	return &out, nil
}

func (r *memoryConversationRepository) FindByOrganization(ctx context.Context, orgID uint) ([]model.Conversation, error) {
	return r.FindRecent(ctx, orgID, -1)
}

func (r *memoryConversationRepository) FindRecent(_ context.Context, orgID uint, limit int) ([]model.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := make([]model.Conversation, 0)
	for _, c := range s.byID {
		if c.OrganizationID == orgID {
			convs = append(convs, copyConversation(c))
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return newerFirst(convs[i].Timestamp, convs[i].ID, convs[j].Timestamp, convs[j].ID)
	})
	if limit >= 0 && len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (r *memoryConversationRepository) UpdateDiscussion(_ context.Context, orgID, id uint, discussion *model.Discussion) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.OrganizationID != orgID {
		return ErrNotFound
	}
	c.Discussion = discussion.Clone()
	s.byID[id] = c
	return nil
}

func (r *memoryConversationRepository) RunInSession(_ context.Context, fn func(repo ConversationRepository) error) error {
	s := r.store
	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sessions--
		s.mu.Unlock()
	}()
	return fn(&memoryConversationRepository{store: s})
}

// OpenSessions 返回内存仓储当前未归还的 session 数量；非内存实现返回 -1。
func OpenSessions(repo ConversationRepository) int {
	m, ok := repo.(*memoryConversationRepository)
	if !ok {
		return -1
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.sessions
}

func newerFirst(ti time.Time, idi uint, tj time.Time, idj uint) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}
