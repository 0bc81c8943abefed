package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/repository"
)

// pagedResponse is the envelope every listing endpoint returns.
type pagedResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

func paged(items interface{}, total int64, page repository.Page) pagedResponse {
	page = page.Clamp()
	return pagedResponse{Items: items, Total: total, Page: page.Number, Size: page.Size}
}

func pageFromQuery(c *fiber.Ctx) repository.Page {
	return repository.Page{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("size", repository.DefaultPageSize),
	}.Clamp()
}

func paramUint(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}
