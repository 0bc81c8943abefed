package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/httpx"
	"github.com/studylion/studypartner-backend/internal/models"
	"github.com/studylion/studypartner-backend/internal/service"
	"github.com/studylion/studypartner-backend/internal/validation"
)

type StudyPostHandler struct {
	postService *service.StudyPostService
}

func NewStudyPostHandler(postService *service.StudyPostService) *StudyPostHandler {
	return &StudyPostHandler{postService: postService}
}

func (h *StudyPostHandler) CreatePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	var input service.CreatePostInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if !validation.ValidateTitle(input.Title) {
		return httpx.BadRequest(c, "invalid_title", "Title is required")
	}
	if input.Content == "" || len(input.Content) > validation.MaxPostLength() {
		return httpx.BadRequest(c, "invalid_content", "Content is required")
	}

	post, err := h.postService.CreatePost(studyID, userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToResponse())
}

func (h *StudyPostHandler) UpdatePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	postID, ok := paramUint(c, "postId")
	if !ok {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	var input service.UpdatePostInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	post, err := h.postService.UpdatePost(postID, userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(post.ToResponse())
}

func (h *StudyPostHandler) GetPost(c *fiber.Ctx) error {
	postID, ok := paramUint(c, "postId")
	if !ok {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	post, err := h.postService.GetPost(postID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(post.ToResponse())
}

func (h *StudyPostHandler) ListStudyPosts(c *fiber.Ctx) error {
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	page := pageFromQuery(c)
	posts, total, err := h.postService.ListStudyPosts(studyID, page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	items := make([]models.StudyPostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, posts[i].ToResponse())
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyPostHandler) ListStudyPostsByType(c *fiber.Ctx) error {
	studyID, ok := paramUint(c, "studyId")
	if !ok {
		return httpx.BadRequest(c, "invalid_study_id", "Invalid study ID")
	}

	page := pageFromQuery(c)
	posts, total, err := h.postService.ListStudyPostsByType(studyID, models.PostType(c.Params("type")), page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	items := make([]models.StudyPostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, posts[i].ToResponse())
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyPostHandler) SearchPosts(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	if keyword == "" {
		return httpx.BadRequest(c, "missing_keyword", "Keyword is required")
	}

	page := pageFromQuery(c)
	posts, total, err := h.postService.SearchPosts(keyword, page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	items := make([]models.StudyPostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, posts[i].ToResponse())
	}
	return c.JSON(paged(items, total, page))
}

func (h *StudyPostHandler) DeletePost(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	postID, ok := paramUint(c, "postId")
	if !ok {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	if err := h.postService.DeletePost(postID, userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

func (h *StudyPostHandler) UploadAttachment(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	postID, ok := paramUint(c, "postId")
	if !ok {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "A file field is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_file", "Could not read uploaded file")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	post, err := h.postService.UploadAttachment(c.Context(), postID, userID,
		fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(post.ToResponse())
}

func (h *StudyPostHandler) DownloadAttachment(c *fiber.Ctx) error {
	postID, ok := paramUint(c, "postId")
	if !ok {
		return httpx.BadRequest(c, "invalid_post_id", "Invalid post ID")
	}

	body, stat, err := h.postService.DownloadAttachment(c.Context(), postID)
	if err != nil {
		return httpx.FromError(c, err)
	}

	if stat.ContentType != "" {
		c.Set(fiber.HeaderContentType, stat.ContentType)
	}
	if stat.ETag != "" {
		c.Set(fiber.HeaderETag, stat.ETag)
	}
	return c.SendStream(body, int(stat.Size))
}
