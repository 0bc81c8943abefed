package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
)

// MockUserRepository is a mock implementation for tests
type MockUserRepository struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	} else if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByNickname(nickname string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Nickname == nickname {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// MockStudyRepository backs both the study and the membership interfaces so
// AddMemberIfCapacity and FindActive see the same rows, like one database.
// When a post store is attached, DeleteCascade sweeps its rows too, matching
// the repository transaction.
type MockStudyRepository struct {
	mu           sync.Mutex
	studies      map[uint]*models.Study
	members      map[uint]*models.StudyMember
	posts        *MockStudyPostRepository
	nextID       uint
	nextMemberID uint
}

func NewMockStudyRepository() *MockStudyRepository {
	return &MockStudyRepository{
		studies:      make(map[uint]*models.Study),
		members:      make(map[uint]*models.StudyMember),
		nextID:       1,
		nextMemberID: 1,
	}
}

func (m *MockStudyRepository) CreateWithLeader(study *models.Study, leader *models.StudyMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if study.ID == 0 {
		study.ID = m.nextID
		m.nextID++
	} else if study.ID >= m.nextID {
		m.nextID = study.ID + 1
	}
	leader.ID = m.nextMemberID
	m.nextMemberID++
	leader.StudyID = study.ID

	sc := *study
	m.studies[study.ID] = &sc
	lc := *leader
	m.members[leader.ID] = &lc
	return nil
}

func (m *MockStudyRepository) FindByID(id uint) (*models.Study, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.studies[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockStudyRepository) FindByIDWithMembers(id uint) (*models.Study, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.studies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	for _, mem := range m.members {
		if mem.StudyID == id && mem.Status == models.MemberActive {
			cp.Members = append(cp.Members, *mem)
		}
	}
	return &cp, nil
}

func (m *MockStudyRepository) Save(study *models.Study) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.studies[study.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *study
	m.studies[study.ID] = &cp
	return nil
}

func (m *MockStudyRepository) AddMemberIfCapacity(studyID uint, member *models.StudyMember) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.studies[studyID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.CurrentParticipants >= s.MaxParticipants {
		return false, nil
	}
	member.ID = m.nextMemberID
	m.nextMemberID++
	member.StudyID = studyID
	cp := *member
	m.members[member.ID] = &cp
	s.CurrentParticipants++
	return true, nil
}

func (m *MockStudyRepository) DeactivateMemberAndDecrement(member *models.StudyMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.members[member.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = member.Status
	stored.LeftAt = member.LeftAt
	if s, ok := m.studies[member.StudyID]; ok && s.CurrentParticipants > 0 {
		s.CurrentParticipants--
	}
	return nil
}

func (m *MockStudyRepository) DeleteCascade(studyID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.studies[studyID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.studies, studyID)
	for id, mem := range m.members {
		if mem.StudyID == studyID {
			delete(m.members, id)
		}
	}
	if m.posts != nil {
		m.posts.deleteByStudy(studyID)
	}
	return nil
}

func (m *MockStudyRepository) RecountParticipants(studyID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.studies[studyID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	count := 0
	for _, mem := range m.members {
		if mem.StudyID == studyID && mem.Status == models.MemberActive {
			count++
		}
	}
	s.CurrentParticipants = count
	return count, nil
}

func (m *MockStudyRepository) List(page repository.Page) ([]models.Study, int64, error) {
	return m.filtered(page, func(*models.Study) bool { return true })
}

func (m *MockStudyRepository) ListByCategory(category string, page repository.Page) ([]models.Study, int64, error) {
	return m.filtered(page, func(s *models.Study) bool { return s.Category == category })
}

func (m *MockStudyRepository) ListByLocation(location string, page repository.Page) ([]models.Study, int64, error) {
	return m.filtered(page, func(s *models.Study) bool { return s.Location == location })
}

func (m *MockStudyRepository) ListByStatus(status models.StudyStatus, page repository.Page) ([]models.Study, int64, error) {
	return m.filtered(page, func(s *models.Study) bool { return s.Status == status })
}

func (m *MockStudyRepository) ListByMember(userID uint, page repository.Page) ([]models.Study, int64, error) {
	m.mu.Lock()
	memberOf := make(map[uint]bool)
	for _, mem := range m.members {
		if mem.UserID == userID && mem.Status == models.MemberActive {
			memberOf[mem.StudyID] = true
		}
	}
	m.mu.Unlock()
	return m.filtered(page, func(s *models.Study) bool { return memberOf[s.ID] })
}

func (m *MockStudyRepository) ListPopular(page repository.Page) ([]models.Study, int64, error) {
	all, total, err := m.filtered(repository.Page{Number: 1, Size: repository.MaxPageSize}, func(*models.Study) bool { return true })
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CurrentParticipants > all[j].CurrentParticipants
	})
	return paginate(all, page), total, nil
}

func (m *MockStudyRepository) Search(criteria repository.StudySearch, page repository.Page) ([]models.Study, int64, error) {
	return m.filtered(page, func(s *models.Study) bool {
		if criteria.Category != nil && s.Category != *criteria.Category {
			return false
		}
		if criteria.Location != nil && s.Location != *criteria.Location {
			return false
		}
		if criteria.StudyType != nil && s.StudyType != *criteria.StudyType {
			return false
		}
		if criteria.Status != nil && s.Status != *criteria.Status {
			return false
		}
		if criteria.Keyword != nil &&
			!strings.Contains(s.Title, *criteria.Keyword) &&
			!strings.Contains(s.Description, *criteria.Keyword) {
			return false
		}
		return true
	})
}

func (m *MockStudyRepository) filtered(page repository.Page, keep func(*models.Study) bool) ([]models.Study, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Study
	for _, s := range m.studies {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), int64(len(out)), nil
}

func paginate(in []models.Study, page repository.Page) []models.Study {
	page = page.Clamp()
	off := page.Offset()
	if off >= len(in) {
		return nil
	}
	end := off + page.Size
	if end > len(in) {
		end = len(in)
	}
	return in[off:end]
}

// MockStudyMemberRepository reads the membership rows owned by a
// MockStudyRepository. Set findActiveErr to simulate a storage failure on
// lookup.
type MockStudyMemberRepository struct {
	store         *MockStudyRepository
	findActiveErr error
}

func NewMockStudyMemberRepository(store *MockStudyRepository) *MockStudyMemberRepository {
	return &MockStudyMemberRepository{store: store}
}

func (m *MockStudyMemberRepository) FindActive(studyID, userID uint) (*models.StudyMember, error) {
	if m.findActiveErr != nil {
		return nil, m.findActiveErr
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, mem := range m.store.members {
		if mem.StudyID == studyID && mem.UserID == userID && mem.Status == models.MemberActive {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockStudyMemberRepository) ListByStudy(studyID uint) ([]models.StudyMember, error) {
	return m.list(studyID, false)
}

func (m *MockStudyMemberRepository) ListActiveByStudy(studyID uint) ([]models.StudyMember, error) {
	return m.list(studyID, true)
}

func (m *MockStudyMemberRepository) list(studyID uint, activeOnly bool) ([]models.StudyMember, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []models.StudyMember
	for _, mem := range m.store.members {
		if mem.StudyID != studyID {
			continue
		}
		if activeOnly && mem.Status != models.MemberActive {
			continue
		}
		out = append(out, *mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStudyMemberRepository) CountActive(studyID uint) (int64, error) {
	active, err := m.list(studyID, true)
	if err != nil {
		return 0, err
	}
	return int64(len(active)), nil
}

// MockStudyPostRepository is a mock implementation for tests
type MockStudyPostRepository struct {
	mu     sync.Mutex
	posts  map[uint]*models.StudyPost
	nextID uint
}

func NewMockStudyPostRepository() *MockStudyPostRepository {
	return &MockStudyPostRepository{posts: make(map[uint]*models.StudyPost), nextID: 1}
}

func (m *MockStudyPostRepository) Create(post *models.StudyPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID == 0 {
		post.ID = m.nextID
		m.nextID++
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *MockStudyPostRepository) FindByID(id uint) (*models.StudyPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockStudyPostRepository) Save(post *models.StudyPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[post.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *MockStudyPostRepository) deleteByStudy(studyID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.StudyID == studyID {
			delete(m.posts, id)
		}
	}
}

func (m *MockStudyPostRepository) ListByStudy(studyID uint, page repository.Page) ([]models.StudyPost, int64, error) {
	return m.filtered(page, func(p *models.StudyPost) bool { return p.StudyID == studyID })
}

func (m *MockStudyPostRepository) ListByStudyAndType(studyID uint, postType models.PostType, page repository.Page) ([]models.StudyPost, int64, error) {
	return m.filtered(page, func(p *models.StudyPost) bool {
		return p.StudyID == studyID && p.Type == postType
	})
}

func (m *MockStudyPostRepository) Search(keyword string, page repository.Page) ([]models.StudyPost, int64, error) {
	return m.filtered(page, func(p *models.StudyPost) bool {
		return strings.Contains(p.Title, keyword) || strings.Contains(p.Content, keyword)
	})
}

func (m *MockStudyPostRepository) filtered(page repository.Page, keep func(*models.StudyPost) bool) ([]models.StudyPost, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StudyPost
	for _, p := range m.posts {
		if p.Status == models.PostDeleted {
			continue
		}
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	page = page.Clamp()
	off := page.Offset()
	if off >= len(out) {
		return nil, total, nil
	}
	end := off + page.Size
	if end > len(out) {
		end = len(out)
	}
	return out[off:end], total, nil
}

// MockNotificationRepository is a mock implementation for tests
type MockNotificationRepository struct {
	mu            sync.Mutex
	notifications map[uint]*models.Notification
	nextID        uint
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{notifications: make(map[uint]*models.Notification), nextID: 1}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		n.ID = m.nextID
		m.nextID++
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *MockNotificationRepository) FindByID(id uint) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) ListByUser(userID uint, page repository.Page) ([]models.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	page = page.Clamp()
	off := page.Offset()
	if off >= len(out) {
		return nil, total, nil
	}
	end := off + page.Size
	if end > len(out) {
		end = len(out)
	}
	return out[off:end], total, nil
}

func (m *MockNotificationRepository) ListUnread(userID uint) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.Status == models.NotificationUnread {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockNotificationRepository) CountUnread(userID uint) (int64, error) {
	unread, err := m.ListUnread(userID)
	if err != nil {
		return 0, err
	}
	return int64(len(unread)), nil
}

func (m *MockNotificationRepository) MarkRead(id uint, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.Status = models.NotificationRead
	n.ReadAt = &readAt
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(userID uint, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID && n.Status == models.NotificationUnread {
			n.Status = models.NotificationRead
			t := readAt
			n.ReadAt = &t
		}
	}
	return nil
}

func (m *MockNotificationRepository) Delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *MockNotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, n := range m.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(m.notifications, id)
			removed++
		}
	}
	return removed, nil
}
