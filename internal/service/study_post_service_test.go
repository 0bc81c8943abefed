package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/storage"
)

// MockObjectStore keeps uploaded objects in memory.
type MockObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{objects: make(map[string][]byte)}
}

func (m *MockObjectStore) PutObject(_ context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectStat, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectStat{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return storage.ObjectStat{Size: int64(len(data)), ContentType: contentType, LastModified: time.Now()}, nil
}

func (m *MockObjectStore) GetObject(_ context.Context, key string) (io.ReadCloser, storage.ObjectStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectStat{}, io.EOF
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectStat{Size: int64(len(data))}, nil
}

func (m *MockObjectStore) RemoveObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

type postFixture struct {
	*studyServiceFixture
	posts    *StudyPostService
	postRepo *MockStudyPostRepository
	store    *MockObjectStore
}

func newPostFixture() *postFixture {
	base := newStudyServiceFixture()
	store := NewMockObjectStore()
	return &postFixture{
		studyServiceFixture: base,
		posts:               NewStudyPostService(base.postRepo, base.studyRepo, base.memberRepo, base.userRepo, store),
		postRepo:            base.postRepo,
		store:               store,
	}
}

func (f *postFixture) seedPost(t *testing.T, studyID, authorID uint, postType models.PostType) *models.StudyPost {
	t.Helper()
	post, err := f.posts.CreatePost(studyID, authorID, CreatePostInput{
		Title:   "Week 3 notes",
		Content: "Covered graph traversal.",
		Type:    postType,
	})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func TestCreatePost(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	member := f.seedUser(t, "member")
	outsider := f.seedUser(t, "outsider")
	study := f.seedStudy(t, leader.ID, 5)
	if _, err := f.service.Join(study.ID, member.ID); err != nil {
		t.Fatalf("setup join: %v", err)
	}

	post, err := f.posts.CreatePost(study.ID, member.ID, CreatePostInput{Title: "Hello", Content: "First post"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.Type != models.PostGeneral {
		t.Errorf("default type = %q, want %q", post.Type, models.PostGeneral)
	}
	if post.Status != models.PostActive {
		t.Errorf("status = %q, want %q", post.Status, models.PostActive)
	}

	// The leader's own membership qualifies.
	if _, err := f.posts.CreatePost(study.ID, leader.ID, CreatePostInput{Title: "Notice", Content: "Welcome", Type: models.PostNotice}); err != nil {
		t.Errorf("leader CreatePost: %v", err)
	}

	tests := []struct {
		name     string
		studyID  uint
		authorID uint
		input    CreatePostInput
		wantKind apperr.Kind
	}{
		{"study not found", 9999, member.ID, CreatePostInput{Title: "x", Content: "y"}, apperr.KindNotFound},
		{"user not found", study.ID, 9999, CreatePostInput{Title: "x", Content: "y"}, apperr.KindNotFound},
		{"non-member forbidden", study.ID, outsider.ID, CreatePostInput{Title: "x", Content: "y"}, apperr.KindForbidden},
		{"invalid type", study.ID, member.ID, CreatePostInput{Title: "x", Content: "y", Type: "poll"}, apperr.KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.CreatePost(tt.studyID, tt.authorID, tt.input)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v (err: %v)", apperr.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	member := f.seedUser(t, "member")
	study := f.seedStudy(t, leader.ID, 5)
	if _, err := f.service.Join(study.ID, member.ID); err != nil {
		t.Fatalf("setup join: %v", err)
	}
	post := f.seedPost(t, study.ID, member.ID, models.PostGeneral)

	title := "Week 3 notes (fixed)"
	updated, err := f.posts.UpdatePost(post.ID, member.ID, UpdatePostInput{Title: &title})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.Title != title {
		t.Errorf("title = %q, want %q", updated.Title, title)
	}
	if updated.Content != post.Content {
		t.Errorf("content changed to %q, want untouched", updated.Content)
	}

	// Even the study leader cannot edit someone else's post.
	if _, err := f.posts.UpdatePost(post.ID, leader.ID, UpdatePostInput{Title: &title}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("non-author update kind = %v, want Forbidden", apperr.KindOf(err))
	}
}

func TestDeletePostSoftDeletes(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	study := f.seedStudy(t, leader.ID, 5)
	post := f.seedPost(t, study.ID, leader.ID, models.PostGeneral)

	if err := f.posts.DeletePost(post.ID, leader.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}

	// The row stays but reads as gone.
	stored, err := f.postRepo.FindByID(post.ID)
	if err != nil {
		t.Fatalf("row removed on delete, want it kept: %v", err)
	}
	if stored.Status != models.PostDeleted {
		t.Errorf("status = %q, want %q", stored.Status, models.PostDeleted)
	}
	if _, err := f.posts.GetPost(post.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("get deleted post kind = %v, want NotFound", apperr.KindOf(err))
	}
	if err := f.posts.DeletePost(post.ID, leader.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("second delete kind = %v, want NotFound", apperr.KindOf(err))
	}

	items, total, err := f.posts.ListStudyPosts(study.ID, repository.Page{})
	if err != nil {
		t.Fatalf("ListStudyPosts: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("deleted post still listed: %d items / total %d", len(items), total)
	}
}

func TestListStudyPostsByType(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	study := f.seedStudy(t, leader.ID, 5)
	f.seedPost(t, study.ID, leader.ID, models.PostGeneral)
	f.seedPost(t, study.ID, leader.ID, models.PostNotice)
	f.seedPost(t, study.ID, leader.ID, models.PostNotice)

	items, total, err := f.posts.ListStudyPostsByType(study.ID, models.PostNotice, repository.Page{})
	if err != nil {
		t.Fatalf("ListStudyPostsByType: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("notice posts = %d / total %d, want 2/2", len(items), total)
	}

	if _, _, err := f.posts.ListStudyPostsByType(study.ID, "poll", repository.Page{}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("invalid type kind = %v, want Invalid", apperr.KindOf(err))
	}
}

func TestSearchPosts(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	study := f.seedStudy(t, leader.ID, 5)
	if _, err := f.posts.CreatePost(study.ID, leader.ID, CreatePostInput{Title: "Dijkstra walkthrough", Content: "shortest paths"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.posts.CreatePost(study.ID, leader.ID, CreatePostInput{Title: "Schedule", Content: "next meetup uses Dijkstra slides"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.posts.CreatePost(study.ID, leader.ID, CreatePostInput{Title: "Intro", Content: "hello"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	items, total, err := f.posts.SearchPosts("Dijkstra", repository.Page{})
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("matches = %d / total %d, want 2/2", len(items), total)
	}
}

func TestUploadAttachment(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	member := f.seedUser(t, "member")
	study := f.seedStudy(t, leader.ID, 5)
	if _, err := f.service.Join(study.ID, member.ID); err != nil {
		t.Fatalf("setup join: %v", err)
	}
	resource := f.seedPost(t, study.ID, member.ID, models.PostResource)
	general := f.seedPost(t, study.ID, member.ID, models.PostGeneral)

	body := strings.NewReader("slide deck bytes")
	post, err := f.posts.UploadAttachment(context.Background(), resource.ID, member.ID, "slides.pdf", "application/pdf", body, 16)
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if post.AttachmentURL == "" {
		t.Fatal("attachment url not recorded")
	}
	if !strings.HasSuffix(post.AttachmentURL, ".pdf") {
		t.Errorf("attachment key %q does not keep the extension", post.AttachmentURL)
	}

	reader, stat, err := f.posts.DownloadAttachment(context.Background(), resource.ID)
	if err != nil {
		t.Fatalf("DownloadAttachment: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	if string(data) != "slide deck bytes" {
		t.Errorf("downloaded %q, want the uploaded bytes", data)
	}
	if stat.Size != 16 {
		t.Errorf("stat size = %d, want 16", stat.Size)
	}

	// Re-upload replaces and removes the old object.
	first := post.AttachmentURL
	post, err = f.posts.UploadAttachment(context.Background(), resource.ID, member.ID, "slides-v2.pdf", "application/pdf", strings.NewReader("v2"), 2)
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if post.AttachmentURL == first {
		t.Error("attachment key not rotated on re-upload")
	}
	f.store.mu.Lock()
	_, oldStillThere := f.store.objects[first]
	f.store.mu.Unlock()
	if oldStillThere {
		t.Error("old object not removed after re-upload")
	}

	tests := []struct {
		name     string
		postID   uint
		userID   uint
		wantKind apperr.Kind
	}{
		{"post not found", 9999, member.ID, apperr.KindNotFound},
		{"non-author forbidden", resource.ID, leader.ID, apperr.KindForbidden},
		{"non-resource post", general.ID, member.ID, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.UploadAttachment(context.Background(), tt.postID, tt.userID, "f.bin", "application/octet-stream", strings.NewReader("x"), 1)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v (err: %v)", apperr.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestAttachmentWithoutStorage(t *testing.T) {
	base := newStudyServiceFixture()
	posts := NewStudyPostService(NewMockStudyPostRepository(), base.studyRepo, base.memberRepo, base.userRepo, nil)
	leader := base.seedUser(t, "leader")
	study := base.seedStudy(t, leader.ID, 5)

	svcPost, err := posts.CreatePost(study.ID, leader.ID, CreatePostInput{Title: "x", Content: "y", Type: models.PostResource})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}

	_, err = posts.UploadAttachment(context.Background(), svcPost.ID, leader.ID, "f.bin", "application/octet-stream", strings.NewReader("x"), 1)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("upload kind = %v, want Unavailable", apperr.KindOf(err))
	}
	_, _, err = posts.DownloadAttachment(context.Background(), svcPost.ID)
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("download kind = %v, want Unavailable", apperr.KindOf(err))
	}
}

func TestDownloadAttachmentMissing(t *testing.T) {
	f := newPostFixture()
	leader := f.seedUser(t, "leader")
	study := f.seedStudy(t, leader.ID, 5)
	post := f.seedPost(t, study.ID, leader.ID, models.PostResource)

	_, _, err := f.posts.DownloadAttachment(context.Background(), post.ID)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want NotFound", apperr.KindOf(err))
	}
}
