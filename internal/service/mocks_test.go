package service

import (
	"context"
	"strings"
	"time"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	getErr    error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, exists := m.users[id]; exists {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return domain.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdateLendDuration(ctx context.Context, id int64, days int) error {
	u, exists := m.users[id]
	if !exists {
		return domain.ErrUserNotFound
	}
	u.LendDuration = days
	return nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var result []*domain.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

// MockBookRepository is a mock implementation of repository.BookRepository.
// Its state-transition methods re-check the lending flags the way the
// real guarded UPDATE statements do.
type MockBookRepository struct {
	books     map[int64]*domain.Book
	nextID    int64
	createErr error
	getErr    error
}

func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{
		books:  make(map[int64]*domain.Book),
		nextID: 1,
	}
}

func (m *MockBookRepository) Create(ctx context.Context, book *domain.Book) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, b := range m.books {
		if strings.EqualFold(b.Title, book.Title) && strings.EqualFold(b.Author, book.Author) {
			return domain.ErrBookAlreadyExists
		}
	}
	book.ID = m.nextID
	m.nextID++
	m.books[book.ID] = book
	return nil
}

func (m *MockBookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if b, exists := m.books[id]; exists {
		// Copy so callers can't mutate stored state through the pointer.
		clone := *b
		return &clone, nil
	}
	return nil, domain.ErrBookNotFound
}

func (m *MockBookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	var result []*domain.Book
	for _, b := range m.books {
		clone := *b
		result = append(result, &clone)
	}
	return result, nil
}

func (m *MockBookRepository) ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error) {
	for _, b := range m.books {
		if strings.EqualFold(b.Title, title) && strings.EqualFold(b.Author, author) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBookRepository) SetActive(ctx context.Context, id int64, active bool) error {
	b, exists := m.books[id]
	if !exists {
		return domain.ErrBookNotFound
	}
	b.Active = active
	return nil
}

func (m *MockBookRepository) Reserve(ctx context.Context, bookID, lenderID int64) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	if b.Reserved {
		return repository.ErrStateConflict
	}
	b.Reserved = true
	b.LenderID = &lenderID
	return nil
}

func (m *MockBookRepository) CancelReservation(ctx context.Context, bookID int64) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	if !b.Reserved || b.LentOut {
		return repository.ErrStateConflict
	}
	b.Reserved = false
	b.LenderID = nil
	return nil
}

func (m *MockBookRepository) MarkLentOut(ctx context.Context, bookID int64, returnDate time.Time) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	if !b.Reserved || b.LentOut {
		return repository.ErrStateConflict
	}
	b.LentOut = true
	b.ReturnDate = &returnDate
	return nil
}

func (m *MockBookRepository) ResetLending(ctx context.Context, bookID int64) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	b.Reserved = false
	b.LentOut = false
	b.LenderID = nil
	b.ReturnDate = nil
	return nil
}

func (m *MockBookRepository) Delete(ctx context.Context, id int64) error {
	b, exists := m.books[id]
	if !exists {
		return domain.ErrBookNotFound
	}
	if b.Reserved || b.LentOut {
		return repository.ErrStateConflict
	}
	delete(m.books, id)
	return nil
}

// okValidator accepts every image URL.
type okValidator struct{}

func (okValidator) Validate(ctx context.Context, imageURL string) error {
	return nil
}

// failValidator rejects every image URL.
type failValidator struct{}

func (failValidator) Validate(ctx context.Context, imageURL string) error {
	return domain.ErrInvalidImageURL
}

// mockCache is a minimal repository.Cache for session tests.
type mockCache struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMockCache() *mockCache {
	return &mockCache{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, exists := c.values[key]; exists {
		return v, nil
	}
	return nil, repository.ErrCacheMiss
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mockCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, exists := c.values[key]; exists {
		return false, nil
	}
	return true, c.Set(ctx, key, value, ttl)
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	delete(c.ttls, key)
	return nil
}

func (c *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := c.values[key]
	return exists, nil
}

func (c *mockCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if _, exists := c.values[key]; exists {
		c.ttls[key] = ttl
	}
	return nil
}

func (c *mockCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if ttl, exists := c.ttls[key]; exists {
		return ttl, nil
	}
	return -1, nil
}

var (
	_ repository.UserRepository = (*MockUserRepository)(nil)
	_ repository.BookRepository = (*MockBookRepository)(nil)
	_ repository.Cache          = (*mockCache)(nil)
)
