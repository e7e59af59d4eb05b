package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/comments"
	"github.com/snap-point/gallery/feed"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/utils"
)

const maxPageSize = 100

type MediaReader interface {
	ListMedia(ctx context.Context, from, to int) ([]models.Media, error)
	SearchMedia(ctx context.Context, query string, from, to int) ([]models.Media, error)
}

type MediaController struct {
	Media    MediaReader
	Comments *comments.Service
	PageSize int
}

func NewMediaController(media MediaReader, comments *comments.Service, pageSize int) *MediaController {
	return &MediaController{Media: media, Comments: comments, PageSize: pageSize}
}

type pageMeta struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
}

func (mc *MediaController) pageParams(c *gin.Context) (int, int) {
	page := utils.QueryInt(c, "page", 1)
	size := utils.QueryInt(c, "pageSize", mc.PageSize)
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// List returns one page of the feed, newest first.
func (mc *MediaController) List(c *gin.Context) {
	page, size := mc.pageParams(c)
	r := feed.PageRange(page, size)

	items, err := mc.Media.ListMedia(c.Request.Context(), r.From, r.To)
	if err != nil {
		respondError(c, err)
		return
	}
	mc.respondPage(c, items, page, size)
}

func (mc *MediaController) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "Search query is required.")
		return
	}
	page, size := mc.pageParams(c)
	r := feed.PageRange(page, size)

	items, err := mc.Media.SearchMedia(c.Request.Context(), q, r.From, r.To)
	if err != nil {
		respondError(c, err)
		return
	}
	mc.respondPage(c, items, page, size)
}

func (mc *MediaController) respondPage(c *gin.Context, items []models.Media, page, size int) {
	if items == nil {
		items = []models.Media{}
	}
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    items,
		Meta:    pageMeta{Page: page, PageSize: size, HasMore: len(items) == size},
	})
}

// Detail returns the item with its comments. Comment failures are reported
// in the payload, not as an error status.
func (mc *MediaController) Detail(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	detail, err := mc.Comments.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, detail)
}

// mediaID parses the :id route parameter, answering 400 when it is not a
// valid id.
func mediaID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Invalid("id", "Invalid media id."))
		return uuid.Nil, false
	}
	return id, true
}
