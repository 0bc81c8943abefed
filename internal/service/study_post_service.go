package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylion/studypartner-backend/internal/apperr"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/repository"
	"github.com/studylion/studypartner-backend/internal/storage"
)

// ObjectStore is the slice of the storage layer posts need for attachments.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectStat, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, storage.ObjectStat, error)
	RemoveObject(ctx context.Context, key string) error
}

type StudyPostService struct {
	postRepo   repository.StudyPostRepositoryInterface
	studyRepo  repository.StudyRepositoryInterface
	memberRepo repository.StudyMemberRepositoryInterface
	userRepo   repository.UserRepositoryInterface
	store      ObjectStore
}

func NewStudyPostService(
	postRepo repository.StudyPostRepositoryInterface,
	studyRepo repository.StudyRepositoryInterface,
	memberRepo repository.StudyMemberRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	store ObjectStore,
) *StudyPostService {
	return &StudyPostService{
		postRepo:   postRepo,
		studyRepo:  studyRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		store:      store,
	}
}

type CreatePostInput struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Type    models.PostType `json:"type"`
}

func (s *StudyPostService) CreatePost(studyID, authorID uint, input CreatePostInput) (*models.StudyPost, error) {
	if input.Type == "" {
		input.Type = models.PostGeneral
	}
	if !models.ValidPostType(input.Type) {
		return nil, apperr.Invalid("invalid_post_type", "invalid post type")
	}

	if _, err := s.studyRepo.FindByID(studyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("study_not_found", "study not found")
		}
		return nil, apperr.Unavailable("study_lookup", err)
	}
	if _, err := s.userRepo.FindByID(authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found")
		}
		return nil, apperr.Unavailable("user_lookup", err)
	}

	// Posting is member-only; the leader's membership qualifies.
	if _, err := s.memberRepo.FindActive(studyID, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("not_member", "not a member of this study")
		}
		return nil, apperr.Unavailable("member_lookup", err)
	}

	post := &models.StudyPost{
		StudyID:  studyID,
		AuthorID: authorID,
		Title:    input.Title,
		Content:  input.Content,
		Type:     input.Type,
		Status:   models.PostActive,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, apperr.Unavailable("post_create", err)
	}
	return s.findActivePost(post.ID)
}

type UpdatePostInput struct {
	Title   *string          `json:"title"`
	Content *string          `json:"content"`
	Type    *models.PostType `json:"type"`
}

func (s *StudyPostService) UpdatePost(postID, userID uint, input UpdatePostInput) (*models.StudyPost, error) {
	post, err := s.findActivePost(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperr.Forbidden("not_author", "only the author can update the post")
	}
	if input.Type != nil && !models.ValidPostType(*input.Type) {
		return nil, apperr.Invalid("invalid_post_type", "invalid post type")
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Content != nil {
		post.Content = *input.Content
	}
	if input.Type != nil {
		post.Type = *input.Type
	}

	if err := s.postRepo.Save(post); err != nil {
		return nil, apperr.Unavailable("post_update", err)
	}
	return post, nil
}

func (s *StudyPostService) GetPost(postID uint) (*models.StudyPost, error) {
	return s.findActivePost(postID)
}

func (s *StudyPostService) ListStudyPosts(studyID uint, page repository.Page) ([]models.StudyPost, int64, error) {
	posts, total, err := s.postRepo.ListByStudy(studyID, page)
	if err != nil {
		return nil, 0, apperr.Unavailable("post_list", err)
	}
	return posts, total, nil
}

func (s *StudyPostService) ListStudyPostsByType(studyID uint, postType models.PostType, page repository.Page) ([]models.StudyPost, int64, error) {
	if !models.ValidPostType(postType) {
		return nil, 0, apperr.Invalid("invalid_post_type", "invalid post type")
	}
	posts, total, err := s.postRepo.ListByStudyAndType(studyID, postType, page)
	if err != nil {
		return nil, 0, apperr.Unavailable("post_list", err)
	}
	return posts, total, nil
}

func (s *StudyPostService) SearchPosts(keyword string, page repository.Page) ([]models.StudyPost, int64, error) {
	posts, total, err := s.postRepo.Search(keyword, page)
	if err != nil {
		return nil, 0, apperr.Unavailable("post_search", err)
	}
	return posts, total, nil
}

// DeletePost soft-deletes: the row stays with status=deleted and disappears
// from listings. A second delete reports NotFound.
func (s *StudyPostService) DeletePost(postID, userID uint) error {
	post, err := s.findActivePost(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return apperr.Forbidden("not_author", "only the author can delete the post")
	}

	post.Status = models.PostDeleted
	if err := s.postRepo.Save(post); err != nil {
		return apperr.Unavailable("post_delete", err)
	}
	return nil
}

// UploadAttachment stores an object for a resource post and records its key
// on the post. Author-only.
func (s *StudyPostService) UploadAttachment(ctx context.Context, postID, userID uint, filename, contentType string, body io.Reader, size int64) (*models.StudyPost, error) {
	if s.store == nil {
		return nil, apperr.Unavailable("attachments_unconfigured", errors.New("object storage not configured"))
	}

	post, err := s.findActivePost(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperr.Forbidden("not_author", "only the author can attach files")
	}
	if post.Type != models.PostResource {
		return nil, apperr.Conflict("not_resource_post", "attachments are only allowed on resource posts")
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("attachments/%d/%s%s", post.ID, uuid.NewString(), ext)
	if _, err := s.store.PutObject(ctx, key, body, size, contentType); err != nil {
		return nil, apperr.Unavailable("attachment_upload", err)
	}

	// Re-uploading replaces; the previous object is garbage after the swap.
	old := post.AttachmentURL
	post.AttachmentURL = key
	if err := s.postRepo.Save(post); err != nil {
		return nil, apperr.Unavailable("post_update", err)
	}
	if old != "" {
		_ = s.store.RemoveObject(ctx, old)
	}
	return post, nil
}

// DownloadAttachment streams the stored object for a post. The caller owns
// closing the returned reader.
func (s *StudyPostService) DownloadAttachment(ctx context.Context, postID uint) (io.ReadCloser, storage.ObjectStat, error) {
	if s.store == nil {
		return nil, storage.ObjectStat{}, apperr.Unavailable("attachments_unconfigured", errors.New("object storage not configured"))
	}

	post, err := s.findActivePost(postID)
	if err != nil {
		return nil, storage.ObjectStat{}, err
	}
	if post.AttachmentURL == "" {
		return nil, storage.ObjectStat{}, apperr.NotFound("attachment_not_found", "post has no attachment")
	}

	body, stat, err := s.store.GetObject(ctx, post.AttachmentURL)
	if err != nil {
		return nil, storage.ObjectStat{}, apperr.Unavailable("attachment_fetch", err)
	}
	return body, stat, nil
}

func (s *StudyPostService) findActivePost(postID uint) (*models.StudyPost, error) {
	post, err := s.postRepo.FindByID(postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post_not_found", "post not found")
		}
		return nil, apperr.Unavailable("post_lookup", err)
	}
	if post.Status == models.PostDeleted {
		return nil, apperr.NotFound("post_not_found", "post not found")
	}
	return post, nil
}
