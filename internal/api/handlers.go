package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/clinic"
)

// resource names one entity kind in response messages.
type resource struct {
	name     string
	notFound error
}

var (
	userResource        = resource{name: "user", notFound: clinic.ErrUserNotFound}
	doctorResource      = resource{name: "doctor", notFound: clinic.ErrDoctorNotFound}
	patientResource     = resource{name: "patient", notFound: clinic.ErrPatientNotFound}
	appointmentResource = resource{name: "appointment", notFound: clinic.ErrAppointmentNotFound}
)

func (res resource) title() string {
	return strings.ToUpper(res.name[:1]) + res.name[1:]
}

// parseID answers 400 itself when the path id is not an ObjectID.
func (res resource) parseID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", res.name))
		return id, false
	}
	return id, true
}

func (res resource) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, res.notFound):
		writeError(w, http.StatusNotFound, res.title()+" not found.")
	case errors.Is(err, clinic.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "User already exists")
	default:
		logError(r, err, action+" "+res.name)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("An error occured while %s the %s.", action, res.name))
	}
}

type validator[T any] interface {
	*T
	Validate() error
}

func listHandler[T any](res resource, list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			logError(r, err, "list "+res.name+"s")
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("An error occured while fetching all %ss.", res.name))
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getHandler[T any](res resource, get func(context.Context, primitive.ObjectID) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := res.parseID(w, r)
		if !ok {
			return
		}
		item, err := get(r.Context(), id)
		if err != nil {
			res.fail(w, r, err, "fetching")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// createHandler surfaces the underlying error message on store failures.
func createHandler[In any, PIn validator[In], T any](res resource, create func(context.Context, In) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if !decodeAndValidate(w, r, PIn(&in)) {
			return
		}
		item, err := create(r.Context(), in)
		if err != nil {
			if errors.Is(err, clinic.ErrEmailTaken) {
				writeError(w, http.StatusBadRequest, "User already exists")
				return
			}
			logError(r, err, "create "+res.name)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func updateHandler[In any, PIn validator[In], T any](res resource, update func(context.Context, primitive.ObjectID, In) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := res.parseID(w, r)
		if !ok {
			return
		}
		var in In
		if !decodeAndValidate(w, r, PIn(&in)) {
			return
		}
		item, err := update(r.Context(), id, in)
		if err != nil {
			res.fail(w, r, err, "updating")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func deleteHandler[T any](res resource, del func(context.Context, primitive.ObjectID) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := res.parseID(w, r)
		if !ok {
			return
		}
		if _, err := del(r.Context(), id); err != nil {
			res.fail(w, r, err, "deleting")
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{
			Message: fmt.Sprintf("%s %s deleted.", res.title(), id.Hex()),
		})
	}
}

// appointmentsByHandler lists the appointments referencing the owner in the path.
func appointmentsByHandler(owner resource, list func(context.Context, primitive.ObjectID) ([]clinic.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := owner.parseID(w, r)
		if !ok {
			return
		}
		items, err := list(r.Context(), id)
		if err != nil {
			logError(r, err, "list appointments by "+owner.name)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("An error occured while fetching the %s's appointments.", owner.name))
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}
