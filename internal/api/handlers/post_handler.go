package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/socialcast-io/socialcast/internal/repository"
)

type PostHandler struct {
	posts   repository.PostRepository
	history repository.PublishHistoryRepository
}

func NewPostHandler(posts repository.PostRepository, history repository.PublishHistoryRepository) *PostHandler {
	return &PostHandler{posts: posts, history: history}
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.posts.GetByID(c.Context(), int64(postID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to load post",
			})
		}
		if post == nil || post.UserID != userID {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Post not found",
			})
		}

		attempts, err := h.history.ListByPostID(c.Context(), userID, post.ID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to load publish history",
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"post":    post,
			"history": attempts,
		})
	}

	posts, err := h.posts.ListByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.posts.Remove(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
