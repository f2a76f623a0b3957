package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/handlers/userctx"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
)

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate string    `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: u.BirthDate.Format(time.DateOnly),
		CreatedAt: u.CreatedAt,
	}
}

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())
		render.JSON(w, newUserResponse(*user))
	})
}

func handleDeleteMe(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userctx.FromContext(r.Context())

		if err := userService.Deactivate(r.Context(), user.ID); err != nil {
			writeError(w, err, l)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleSearchUsers(userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := models.UserFilter{
			FirstName: query.Get("first_name"),
			LastName:  query.Get("last_name"),
			Substr:    query.Get("substr"),
		}
		if value := query.Get("birth_date"); value != "" {
			date, err := time.Parse(time.DateOnly, value)
			if err != nil {
				render.ServiceError(w, "Invalid birth_date, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			filter.BirthDate = &date
		}

		users, err := userService.Search(r.Context(), filter)
		if err != nil {
			writeError(w, err, l)
			return
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, newUserResponse(u))
		}
		render.JSON(w, res)
	})
}
