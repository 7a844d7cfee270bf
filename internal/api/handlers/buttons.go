package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/unlock-remote/device/internal/api/middleware"
	"github.com/unlock-remote/device/internal/input"
)

// ButtonSource is the API's name for presses it injects.
const ButtonSource = "api"

// Presser accepts button presses.
type Presser interface {
	Press(b input.Button, source string) error
}

// PressResponse acknowledges an accepted press.
type PressResponse struct {
	Button string `json:"button"`
	Status string `json:"status"`
}

// PressButton returns a handler that injects a press of {button}.
func PressButton(buttons Presser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := input.ParseButton(mux.Vars(r)["button"])
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		switch err := buttons.Press(b, ButtonSource); {
		case errors.Is(err, input.ErrBusy):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrBusy, err.Error())
			return
		case errors.Is(err, input.ErrDebounced):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrDebounced, err.Error())
			return
		case err != nil:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		middleware.WriteJSON(w, http.StatusAccepted, PressResponse{Button: string(b), Status: "accepted"})
	}
}
