package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/comments"
	"github.com/snap-point/gallery/likes"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/utils"
)

type LikeReader interface {
	GetMedia(ctx context.Context, id uuid.UUID) (*models.Media, error)
	HasLiked(ctx context.Context, mediaID, userID uuid.UUID) (bool, error)
	CountLikes(ctx context.Context, mediaID uuid.UUID) (int64, error)
}

type InteractionController struct {
	Comments *comments.Service
	Toggler  *likes.Toggler
	Likes    LikeReader
}

func NewInteractionController(comments *comments.Service, toggler *likes.Toggler, likes LikeReader) *InteractionController {
	return &InteractionController{Comments: comments, Toggler: toggler, Likes: likes}
}

func (ic *InteractionController) ListComments(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	list, err := ic.Comments.List(c.Request.Context(), id)
	if err != nil && !errors.Is(err, apperrors.ErrEmptyResult) {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (ic *InteractionController) AddComment(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	var input struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Comment text is required.")
		return
	}

	comment, err := ic.Comments.Submit(c.Request.Context(), id, utils.GetSession(c), input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, comment)
}

// GetLike returns the viewer's like state and the item's count.
func (ic *InteractionController) GetLike(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	state, err := ic.likeState(c.Request.Context(), id, utils.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, state)
}

func (ic *InteractionController) ToggleLike(c *gin.Context) {
	id, ok := mediaID(c)
	if !ok {
		return
	}
	userID := utils.UserID(c)
	if userID == uuid.Nil {
		respondError(c, apperrors.ErrUnauthenticated)
		return
	}

	current, err := ic.likeState(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	next, err := ic.Toggler.Toggle(c.Request.Context(), id, userID, current)
	if errors.Is(err, likes.ErrToggleInFlight) {
		c.JSON(http.StatusConflict, StandardResponse{Success: false, Message: "Like update already in progress."})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, next)
}

// likeState fails with apperrors.ErrNotFound for unknown media.
func (ic *InteractionController) likeState(ctx context.Context, mediaID, userID uuid.UUID) (likes.State, error) {
	if _, err := ic.Likes.GetMedia(ctx, mediaID); err != nil {
		return likes.State{}, err
	}
	count, err := ic.Likes.CountLikes(ctx, mediaID)
	if err != nil {
		return likes.State{}, err
	}
	state := likes.State{Count: count}
	if userID != uuid.Nil {
		if state.Liked, err = ic.Likes.HasLiked(ctx, mediaID, userID); err != nil {
			return likes.State{}, err
		}
	}
	return state, nil
}

