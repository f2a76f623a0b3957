package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/service/user"
)

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func handleRegister(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Login     string `json:"login" validate:"required,notblank,max=100"`
		Password  string `json:"password" validate:"required"`
		FirstName string `json:"first_name" validate:"required,notblank,max=100"`
		LastName  string `json:"last_name" validate:"required,notblank,max=100"`
		BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		// Format checked by validator already
		birthDate, _ := time.Parse(time.DateOnly, data.BirthDate)

		_, err = userService.Register(r.Context(), user.RegisterParams{
			Login:     data.Login,
			Password:  data.Password,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			BirthDate: birthDate,
		})
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSONWithStatus(w, response{Message: "User registered successfully"}, http.StatusCreated)
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Login, data.Password)
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSON(w, tokenPairResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value})
	})
}

func handleRefreshToken(authService authService, l logger.Logger) http.Handler {
	type request struct {
		AccessToken  string `json:"access_token" validate:"required"`
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.RefreshToken(r.Context(), data.AccessToken, data.RefreshToken)
		if err != nil {
			writeError(w, err, l)
			return
		}

		render.JSON(w, tokenPairResponse{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value})
	})
}
