package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/handlers/userctx"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
)

type PostResponse struct {
	ID        uuid.UUID `json:"id"`
	Header    string    `json:"header"`
	Body      string    `json:"body"`
	Owner     uuid.UUID `json:"owner"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPostResponse(p models.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		Header:    p.Header,
		Body:      p.Body,
		Owner:     p.Owner,
		Likes:     p.Likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Path id is validated by the dispatcher already
func postID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(r.PathValue("id"))
	return id
}

func handleListPosts(postService postService, l logger.Logger) http.Handler {
	type response struct {
		Data   []PostResponse `json:"data"`
		Limit  int            `json:"limit"`
		Offset int            `json:"offset"`
		Count  int            `json:"count"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		limit, err := queryInt(query.Get("limit"))
		if err != nil {
			render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		offset, err := queryInt(query.Get("offset"))
		if err != nil {
			render.ServiceError(w, "Invalid offset", http.StatusBadRequest)
			return
		}

		page, err := postService.List(r.Context(), limit, offset)
		if err != nil {
			writeError(w, err, l)
			return
		}

		res := response{
			Data:   make([]PostResponse, 0, len(page.Items)),
			Limit:  page.Limit,
			Offset: page.Offset,
			Count:  page.Count,
		}
		for _, p := range page.Items {
			res.Data = append(res.Data, newPostResponse(p))
		}

		render.JSON(w, res)
	})
}

// Empty value is zero, so services use their defaults
func queryInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func handleCreatePost(postService postService, l logger.Logger) http.Handler {
	type request struct {
		Header string `json:"header" validate:"required,notblank,max=100"`
		Body   string `json:"body" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		post, err := postService.Create(r.Context(), user.ID, data.Header, data.Body)
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSONWithStatus(w, newPostResponse(post), http.StatusCreated)
	})
}

func handleGetPost(postService postService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		post, err := postService.Get(r.Context(), postID(r))
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSON(w, newPostResponse(post))
	})
}

func handleUpdatePost(postService postService, l logger.Logger) http.Handler {
	type request struct {
		Header *string `json:"header" validate:"omitnil,notblank,max=100"`
		Body   *string `json:"body"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		post, err := postService.Update(r.Context(), postID(r), data.Header, data.Body)
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSON(w, newPostResponse(post))
	})
}

func handleDeletePost(postService postService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())

		if err := postService.Delete(r.Context(), postID(r), user.ID); err != nil {
			writeError(w, err, l)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleLikePost(postService postService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())

		post, err := postService.Like(r.Context(), postID(r), user.ID)
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSON(w, newPostResponse(post))
	})
}

func handleDislikePost(postService postService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())

		if err := postService.Dislike(r.Context(), postID(r), user.ID); err != nil {
			writeError(w, err, l)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
